package iocli

//go:generate moq -out io_mock.go . IO

// IO abstracts terminal interaction so commands can be tested against a
// scripted mock.
type IO interface {
	Println(a ...any)
	Printf(format string, a ...any)
	ReadInput(prompt string) (string, error)
	// IsInteractive reports whether stdin is a terminal. Confirmation
	// prompts are skipped when it is not.
	IsInteractive() bool
	Write(p []byte) (n int, err error)
}
