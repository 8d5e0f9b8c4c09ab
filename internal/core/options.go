package core

import "fmt"

// UnlimitedHistory disables trimming of channel buffers.
const UnlimitedHistory = -1

// Options are the process-wide settings consulted by channel state.
type Options struct {
	// Public disables every write-through to durable storage and logs.
	Public bool
	// MaxHistory bounds each channel buffer. -1 is unlimited; 0 keeps
	// nothing and never releases previews on trim.
	MaxHistory int
	// Prefetch enables link previews.
	Prefetch bool
	// PrefetchStorage stores preview thumbnails locally.
	PrefetchStorage bool
	// LobbyLogTarget picks the log file name for lobby channels.
	LobbyLogTarget LogTargetRule
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		MaxHistory:     10000,
		LobbyLogTarget: LogTargetHost,
	}
}

// Validate rejects values the channel core cannot honor.
func (o Options) Validate() error {
	if o.MaxHistory < UnlimitedHistory {
		return fmt.Errorf("max history %d: must be -1 or greater", o.MaxHistory)
	}
	switch o.LobbyLogTarget {
	case LogTargetHost, LogTargetName:
	default:
		return fmt.Errorf("lobby log target %q: must be %q or %q", o.LobbyLogTarget, LogTargetHost, LogTargetName)
	}
	return nil
}

// releasesOnTrim reports whether trimmed messages give up their previews.
// With MaxHistory == 0 a thumbnail would be gone before any session could
// fetch it, so release is skipped there.
func (o Options) releasesOnTrim() bool {
	return o.Prefetch && o.PrefetchStorage && o.MaxHistory > 0
}
