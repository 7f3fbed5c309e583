package commands

import "fmt"

type Result struct {
	Message string
}

type Handlers struct {
	New        func(NewArgs) (Result, error)
	Edit       func(EditArgs) (Result, error)
	Move       func(MoveArgs) (Result, error)
	Delete     func(TargetArgs) (Result, error)
	Cancel     func(TargetArgs) (Result, error)
	Resend     func(ResendArgs) (Result, error)
	Reschedule func(RescheduleArgs) (Result, error)
	Goto       func(GotoArgs) (Result, error)
	View       func(ViewArgs) (Result, error)
}

func missing(t Type) error {
	return &CommandError{Code: ErrCodeHandlerMissing, Message: fmt.Sprintf("%s handler not configured", t)}
}

func Execute(cmd Command, handlers Handlers) (Result, error) {
	switch cmd.Type {
	case TypeNew:
		if handlers.New == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.New(*cmd.New)
	case TypeEdit:
		if handlers.Edit == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Edit(*cmd.Edit)
	case TypeMove:
		if handlers.Move == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Move(*cmd.Move)
	case TypeDelete:
		if handlers.Delete == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Delete(*cmd.Delete)
	case TypeCancel:
		if handlers.Cancel == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Cancel(*cmd.Cancel)
	case TypeResend:
		if handlers.Resend == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Resend(*cmd.Resend)
	case TypeReschedule:
		if handlers.Reschedule == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Reschedule(*cmd.Reschedule)
	case TypeGoto:
		if handlers.Goto == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Goto(*cmd.Goto)
	case TypeView:
		if handlers.View == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.View(*cmd.View)
	default:
		return Result{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unknown command type: %s", cmd.Type)}
	}
}
