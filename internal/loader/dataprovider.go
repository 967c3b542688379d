package loader

// DataProvider defines the interface for reading bundled artifacts.
// This abstraction allows for dependency injection and makes the loader
// testable without real embedded files.
//
// Implementations:
//   - embeddedDataProvider: Uses embed.FS for production (real embedded files)
//   - MockDataProvider: Uses an in-memory map for testing
type DataProvider interface {
	// ReadFile reads the named artifact (e.g. "search-index.json").
	// A missing artifact returns an error matching fs.ErrNotExist.
	ReadFile(name string) ([]byte, error)
}
