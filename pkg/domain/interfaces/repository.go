package interfaces

// Repository defines the interface for data persistence. It is constructed
// once at process start, injected into every component that needs it, and
// closed at process stop.
type Repository interface {
	Memory() MemoryRepository
	Turn() TurnRepository

	Close() error
}
