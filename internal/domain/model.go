package domain

// ModelState is the load state of a recognition model.
type ModelState string

const (
	ModelStateUnloaded ModelState = "unloaded"
	ModelStateLoading  ModelState = "loading"
	ModelStateReady    ModelState = "ready"
	ModelStateFailed   ModelState = "failed"
)

// ModelHandle identifies a model variant and its load state.
type ModelHandle struct {
	Name  string     `json:"name"`
	State ModelState `json:"state"`
	Error string     `json:"error,omitempty"`
}

// ModelStatus is a consistent snapshot of the model manager for the UI.
type ModelStatus struct {
	Current   ModelHandle `json:"current"`
	Pending   string      `json:"pending,omitempty"`
	LastError string      `json:"lastError,omitempty"`
}
