package event

import "time"

// Type identifies the kind of event.
type Type int

const (
	ScanStarted Type = iota + 1
	ScanComplete
	FileStarted
	FileCopied
	FileSkipped
	FileFailed
	FileRetrying
	BucketCreated
	RunComplete
)

var typeNames = [...]string{
	ScanStarted:   "ScanStarted",
	ScanComplete:  "ScanComplete",
	FileStarted:   "FileStarted",
	FileCopied:    "FileCopied",
	FileSkipped:   "FileSkipped",
	FileFailed:    "FileFailed",
	FileRetrying:  "FileRetrying",
	BucketCreated: "BucketCreated",
	RunComplete:   "RunComplete",
}

func (t Type) String() string {
	if t >= 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Unknown"
}

// Event represents a single progress event from the engine.
type Event struct {
	Type      Type
	Timestamp time.Time
	Path      string // source path relative to the scan root
	Dest      string // final destination path (FileCopied, BucketCreated)
	Size      int64  // file size in bytes
	Total     int64  // total files (ScanComplete)
	TotalSize int64  // total bytes (ScanComplete)
	Reason    string // skip reason (FileSkipped)
	Attempt   int    // attempts executed so far (FileRetrying)
	Delay     time.Duration
	Error     error
	WorkerID  int
}
