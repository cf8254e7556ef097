package ports

// Ingestor receives mail pushed to the daemon and hands it to the pipeline
type Ingestor interface {
	// Start starts accepting mail. It returns once the listener is running.
	Start() error

	// Stop stops accepting mail
	Stop() error
}
