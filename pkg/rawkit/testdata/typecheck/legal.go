//go:build ignore

package main

import (
	"github.com/user/rawkit/pkg/adapters/memraw"
	"github.com/user/rawkit/pkg/rawkit"
)

func main() {
	lib := rawkit.New(memraw.New())
	fresh, err := lib.Init()
	if err != nil {
		return
	}
	s, err := rawkit.Load(fresh, "shot.raw")
	if err != nil {
		return
	}
	_, _ = rawkit.GetDecoderInfo(s)
	thumbed, err := rawkit.UnpackThumb(s)
	if err != nil {
		return
	}
	_ = rawkit.WriteThumbnail(thumbed, "thumb.jpg", false)
	if img, err := rawkit.MakeMemThumb(thumbed); err == nil {
		img.Close()
	}
	unpacked, err := rawkit.Unpack(thumbed)
	if err != nil {
		return
	}
	_ = rawkit.SubtractBlack(unpacked)
	if img, err := rawkit.MakeMemImage(unpacked); err == nil {
		img.Close()
	}
	processed, err := rawkit.Process(unpacked)
	if err != nil {
		return
	}
	processed, err = rawkit.WriteImage(processed, "out.tiff", true)
	if err != nil {
		return
	}
	again, err := processed.Recycle()
	if err != nil {
		return
	}
	again.Close()
}
