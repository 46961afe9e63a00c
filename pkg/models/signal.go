package models

import "time"

// Mode describes what an inbound message is asking the runtime to do.
type Mode string

const (
	ModeExecute Mode = "execute"
	ModeBuild   Mode = "build"
	ModeAnalyze Mode = "analyze"
	ModeMaintain Mode = "maintain"
	ModeAssist  Mode = "assist"
)

// Genre describes the speech-act intent of an inbound message.
type Genre string

const (
	GenreDirect  Genre = "direct"
	GenreInform  Genre = "inform"
	GenreCommit  Genre = "commit"
	GenreDecide  Genre = "decide"
	GenreExpress Genre = "express"
)

// Format describes the container form of an inbound message.
type Format string

const (
	FormatMessage      Format = "message"
	FormatDocument     Format = "document"
	FormatNotification Format = "notification"
	FormatCommand      Format = "command"
	FormatTranscript   Format = "transcript"
)

// Signal is the immutable five-dimensional classification of an inbound
// message plus its informational-density weight.
type Signal struct {
	Mode      Mode      `json:"mode"`
	Genre     Genre     `json:"genre"`
	Type      string    `json:"type"`
	Format    Format    `json:"format"`
	Weight    float64   `json:"weight"`
	RawText   string    `json:"raw_text"`
	Channel   string    `json:"channel"`
	Timestamp time.Time `json:"timestamp"`
}
