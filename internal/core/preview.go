package core

// PreviewCache owns cached preview thumbnails shared by all channels.
// Implementations must be safe for concurrent use.
type PreviewCache interface {
	// Dereference drops one reference to a cached resource.
	Dereference(ref string)
}

// ThumbnailStore is a PreviewCache that can also accept new thumbnails.
type ThumbnailStore interface {
	PreviewCache
	// Store caches data and returns a reference to it.
	Store(data []byte, ext string) (string, error)
}

// ReleasePreviews dereferences every thumbnail held by msgs and clears the
// reference. Messages already released are skipped, so calling it twice is
// a no-op the second time.
func ReleasePreviews(cache PreviewCache, msgs []*Message) int {
	released := 0
	for _, m := range msgs {
		if m == nil || m.Preview == nil || m.Preview.Thumb == "" {
			continue
		}
		if cache != nil {
			cache.Dereference(m.Preview.Thumb)
		}
		m.Preview.Thumb = ""
		released++
	}
	return released
}
