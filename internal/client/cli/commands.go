package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/accountkeeper/internal/client/config"
	"github.com/dmitrijs2005/accountkeeper/internal/common"
)

func (a *App) promptPassword(prompt string) (string, error) {
	pw, err := getPassword(prompt, a.out)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(pw)
	return string(pw), nil
}

func (a *App) Register(ctx context.Context, _ []string) error {
	username, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	password, err := a.promptPassword("Enter password")
	if err != nil {
		return err
	}

	res, err := a.svc.Register(ctx, username, password)
	if err != nil {
		return err
	}
	return a.report(res)
}

// Login prints the issued tokens as shell exports so later one-shot
// invocations can pick them up from the environment.
func (a *App) Login(ctx context.Context, _ []string) error {
	username, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	password, err := a.promptPassword("Enter password")
	if err != nil {
		return err
	}

	res, err := a.svc.Login(ctx, username, password)
	if err != nil {
		return err
	}
	if err := a.report(res.Result); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Logged in as %s (%s)\n", username, res.Role)
	a.printTokens(res.AccessToken, res.RefreshToken)
	return nil
}

func (a *App) Refresh(ctx context.Context, _ []string) error {
	res, err := a.svc.Refresh(ctx)
	if err != nil {
		return err
	}
	a.printTokens(res.AccessToken, res.RefreshToken)
	return nil
}

func (a *App) printTokens(access, refresh string) {
	fmt.Fprintf(a.out, "export %s=%s\n", common.AccessTokenEnvName, access)
	fmt.Fprintf(a.out, "export %s=%s\n", config.EnvRefreshToken, refresh)
}

func (a *App) ChangePassword(ctx context.Context, _ []string) error {
	oldPassword, err := a.promptPassword("Enter current password")
	if err != nil {
		return err
	}
	newPassword, err := a.promptPassword("Enter new password")
	if err != nil {
		return err
	}
	repeatPassword, err := a.promptPassword("Repeat new password")
	if err != nil {
		return err
	}

	res, err := a.svc.ChangePassword(ctx, oldPassword, newPassword, repeatPassword)
	if err != nil {
		return err
	}
	return a.report(res)
}

func (a *App) ChangeRole(ctx context.Context, args []string) error {
	res, err := a.svc.ChangeRole(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	return a.report(res)
}

func (a *App) ToggleActive(ctx context.Context, args []string) error {
	res, isActive, err := a.svc.ChangeActiveStatus(ctx, args[0])
	if err != nil {
		return err
	}
	if err := a.report(res); err != nil {
		return err
	}
	state := "inactive"
	if isActive {
		state = "active"
	}
	fmt.Fprintf(a.out, "%s is now %s\n", args[0], state)
	return nil
}

func (a *App) Delete(ctx context.Context, args []string) error {
	ok, err := Confirm(a.reader, fmt.Sprintf("Delete account %q and all its data?", args[0]), a.out)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(a.out, "Cancelled")
		return nil
	}

	res, err := a.svc.DeleteUser(ctx, args[0])
	if err != nil {
		return err
	}
	return a.report(res)
}

func (a *App) Ping(ctx context.Context, _ []string) error {
	if err := a.svc.Ping(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "OK")
	return nil
}
