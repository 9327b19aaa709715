package cli

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/workoutlog/internal/workout"
)

var errLoginFailed = errors.New("login failed")

// Register runs the sign-up form. Validation problems are shown as alerts
// and never reach the backend.
func (a *App) Register(ctx context.Context) error {
	identifier, err := getSimpleText(a.reader, "Email (seu@email.com)", a.out)
	if err != nil {
		return err
	}
	secret, err := getPassword(a.reader, "Senha", a.out)
	if err != nil {
		return err
	}
	confirm, err := getPassword(a.reader, "Confirmar senha", a.out)
	if err != nil {
		return err
	}

	creds := workout.Credentials{Identifier: identifier, Secret: secret, Confirmation: confirm}
	if err := workout.ValidateCredentials(creds); err != nil {
		a.notifier.Alert(ctx, err.Error())
		return err
	}

	return a.sessions.Register(ctx, creds)
}

func (a *App) Login(ctx context.Context) error {
	identifier, err := getSimpleText(a.reader, "Email (seu@email.com)", a.out)
	if err != nil {
		return err
	}
	secret, err := getPassword(a.reader, "Senha", a.out)
	if err != nil {
		return err
	}

	if err := workout.ValidateLogin(identifier, secret); err != nil {
		a.notifier.Alert(ctx, err.Error())
		return err
	}

	if !a.sessions.Login(ctx, identifier, secret) {
		return errLoginFailed
	}
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	a.sessions.Logout(ctx)
	a.draft, a.draftDate = nil, ""
	return nil
}
