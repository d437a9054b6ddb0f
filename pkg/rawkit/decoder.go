package rawkit

import (
	"bytes"
	"strings"

	"github.com/user/rawkit/pkg/ports"
)

// DecoderInfo names the decoder the native library selected for the
// loaded file. It is a snapshot and does not follow later session changes.
type DecoderInfo struct {
	Name  string
	Flags DecoderFlags
}

func decoderInfoFromRecord(rec ports.DecoderRecord) DecoderInfo {
	name := rec.Name
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	return DecoderInfo{
		Name:  string(name),
		Flags: DecoderFlags(rec.Flags),
	}
}

// DecoderFlags describe properties of a native decoder.
type DecoderFlags uint32

const (
	DecoderHasCurve          DecoderFlags = 1 << 4
	DecoderSonyARW2          DecoderFlags = 1 << 5
	DecoderTryRawSpeed       DecoderFlags = 1 << 6
	DecoderOwnAlloc          DecoderFlags = 1 << 7
	DecoderFixedMaxC         DecoderFlags = 1 << 8
	DecoderAdobeCopyPixel    DecoderFlags = 1 << 9
	DecoderLegacyWithMargins DecoderFlags = 1 << 10
	Decoder3Channel          DecoderFlags = 1 << 11
	DecoderSinar4Shot                     = Decoder3Channel
	DecoderFlatData          DecoderFlags = 1 << 12
	DecoderFlatBG2Swapped    DecoderFlags = 1 << 13
	DecoderUnsupportedFormat DecoderFlags = 1 << 14
	DecoderNotSet            DecoderFlags = 1 << 15
	DecoderTryRawSpeed3      DecoderFlags = 1 << 16
)

var decoderFlagNames = []struct {
	flag DecoderFlags
	name string
}{
	{DecoderHasCurve, "HASCURVE"},
	{DecoderSonyARW2, "SONYARW2"},
	{DecoderTryRawSpeed, "TRYRAWSPEED"},
	{DecoderOwnAlloc, "OWNALLOC"},
	{DecoderFixedMaxC, "FIXEDMAXC"},
	{DecoderAdobeCopyPixel, "ADOBECOPYPIXEL"},
	{DecoderLegacyWithMargins, "LEGACY_WITH_MARGINS"},
	{Decoder3Channel, "3CHANNEL"},
	{DecoderFlatData, "FLATDATA"},
	{DecoderFlatBG2Swapped, "FLAT_BG2_SWAPPED"},
	{DecoderUnsupportedFormat, "UNSUPPORTED_FORMAT"},
	{DecoderNotSet, "NOTSET"},
	{DecoderTryRawSpeed3, "TRYRAWSPEED3"},
}

// Has reports whether every bit of flag is set.
func (f DecoderFlags) Has(flag DecoderFlags) bool {
	return f&flag == flag
}

// String lists the set flags separated by "|".
func (f DecoderFlags) String() string {
	var names []string
	for _, n := range decoderFlagNames {
		if f.Has(n.flag) {
			names = append(names, n.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// Supported reports whether the decoder can actually decode the file.
func (d DecoderInfo) Supported() bool {
	return !d.Flags.Has(DecoderUnsupportedFormat) && !d.Flags.Has(DecoderNotSet)
}
