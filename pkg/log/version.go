package log

// Version of the log package, checked by mongoship.New.
const (
	Version              = "1.0.0"
	MinCompatibleVersion = "1.0.0"
)
