package media

import "fmt"

// Role is one of the fixed photo slots of a protocol.
type Role string

const (
	RoleInvoice Role = "nota"
	RoleProduct Role = "produto"
	RoleDamage  Role = "avaria"
)

// Roles lists the slots in display order.
var Roles = []Role{RoleInvoice, RoleProduct, RoleDamage}

// Valid reports whether r is one of Roles.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// Status is the upload state of one image.
type Status string

const (
	StatusPending   Status = "pending"
	StatusUploading Status = "uploading"
	StatusRetrying  Status = "retrying"
	StatusSuccess   Status = "success"
	StatusError     Status = "error"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusError
}

var transitions = map[Status][]Status{
	StatusPending:   {StatusUploading, StatusError},
	StatusUploading: {StatusSuccess, StatusRetrying, StatusError},
	StatusRetrying:  {StatusUploading, StatusError},
}

// Event is emitted on every status change of a task.
type Event struct {
	Role    Role   `json:"role"`
	Status  Status `json:"status"`
	Attempt int    `json:"attempt,omitempty"`
	Path    string `json:"path,omitempty"`
	URL     string `json:"url,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Listener receives progress events. Uploads run concurrently, so
// implementations must be safe for concurrent use.
type Listener interface {
	OnProgress(Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(Event)

func (f ListenerFunc) OnProgress(e Event) { f(e) }

type nopListener struct{}

func (nopListener) OnProgress(Event) {}

// Task tracks one image from payload to terminal status.
type Task struct {
	Role     Role
	Path     string
	Status   Status
	Attempts int
	LastErr  error

	listener Listener
}

func newTask(role Role, listener Listener) *Task {
	if listener == nil {
		listener = nopListener{}
	}
	t := &Task{Role: role, Status: StatusPending, listener: listener}
	t.emit("")
	return t
}

// transition moves the task and reports the change.
func (t *Task) transition(to Status, url string) error {
	allowed := false
	for _, s := range transitions[t.Status] {
		if s == to {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("upload %s: invalid transition %s -> %s", t.Role, t.Status, to)
	}
	t.Status = to
	t.emit(url)
	return nil
}

func (t *Task) emit(url string) {
	e := Event{Role: t.Role, Status: t.Status, Attempt: t.Attempts, Path: t.Path, URL: url}
	if t.LastErr != nil && (t.Status == StatusRetrying || t.Status == StatusError) {
		e.Error = t.LastErr.Error()
	}
	t.listener.OnProgress(e)
}
