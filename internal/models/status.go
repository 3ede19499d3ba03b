package models

// EngineStatus is the coarse analysis state exposed to the rendering
// layer for progress display.
type EngineStatus string

const (
	EngineIdle      EngineStatus = "idle"
	EngineRunning   EngineStatus = "running"
	EngineCompleted EngineStatus = "completed"
	EngineError     EngineStatus = "error"
)
