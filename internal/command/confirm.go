package command

import "context"

// Confirmer asks the user to approve a destructive command.
type Confirmer interface {
	ConfirmDelete(ctx context.Context, id int64) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer
type ConfirmFunc func(ctx context.Context, id int64) (bool, error)

// ConfirmDelete calls f
func (f ConfirmFunc) ConfirmDelete(ctx context.Context, id int64) (bool, error) {
	return f(ctx, id)
}

// AlwaysConfirm approves every request. Used for --yes.
var AlwaysConfirm Confirmer = ConfirmFunc(func(context.Context, int64) (bool, error) {
	return true, nil
})
