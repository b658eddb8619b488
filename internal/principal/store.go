package principal

import "context"

// Store reads principals. Lookups of unknown ids or usernames return core.ErrNotFound.
type Store interface {
	StudentByUsername(ctx context.Context, username string) (*Student, error)
	TeacherByUsername(ctx context.Context, username string) (*Teacher, error)
	Student(ctx context.Context, id string) (*Student, error)
	Teacher(ctx context.Context, id string) (*Teacher, error)
	StudentsInBatch(ctx context.Context, batch BatchID) ([]Student, error)
}
