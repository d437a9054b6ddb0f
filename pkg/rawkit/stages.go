package rawkit

// Stage markers. They carry no data; a Session's type arguments record how
// far the native context has advanced.
type (
	// Unloaded: no file has been opened on the context.
	Unloaded struct{}
	// Loaded: a file is open and its headers parsed.
	Loaded struct{}
	// Unknown: the sub-pipeline has not been advanced.
	Unknown struct{}
	// Unpacked: the sub-pipeline's data has been decoded.
	Unpacked struct{}
	// Processed: the image has been demosaiced and colour corrected.
	Processed struct{}
)

// Stage is the coarse lifecycle position of a session.
type Stage interface {
	Unloaded | Loaded
}

// ImageStage is the progress of the main image sub-pipeline.
type ImageStage interface {
	Unknown | Unpacked | Processed
}

// ThumbStage is the progress of the thumbnail sub-pipeline.
type ThumbStage interface {
	Unknown | Unpacked
}

// UnpackedOrProcessed admits the stages from which a buffer can be extracted.
type UnpackedOrProcessed interface {
	Unpacked | Processed
}

// ThumbReady admits the thumbnail stage from which a thumbnail can be extracted.
type ThumbReady interface {
	Unpacked
}

// Fresh is the state of a newly initialised or recycled session.
type Fresh = Session[Unloaded, Unknown, Unknown]
