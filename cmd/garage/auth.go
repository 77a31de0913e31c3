package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"garage-go/internal/model"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Sign in and out",
}

var authLoginCmd = &cobra.Command{
	Use:   "login EMAIL",
	Short: "Sign in with email and password",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		password, err := readPassword("Password: ")
		if err != nil {
			return err
		}

		a, err := newApp(ctx, "Login")
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.Track(args[0]); err != nil {
			return err
		}

		u, err := a.Service().Login(ctx, args[0], password)
		if err := a.Finish(err); err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
		out().Success("Signed in as %s", u.DisplayName())
		return nil
	},
}

var authRegisterCmd = &cobra.Command{
	Use:   "register EMAIL",
	Short: "Create an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		first, _ := cmd.Flags().GetString("first-name")
		last, _ := cmd.Flags().GetString("last-name")
		password, err := readPassword("Password: ")
		if err != nil {
			return err
		}

		a, err := newApp(ctx, "Register")
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.Track(args[0]); err != nil {
			return err
		}

		u, err := a.Service().Register(ctx, model.RegisterRequest{
			Email: args[0], Password: password, FirstName: first, LastName: last,
		})
		if err := a.Finish(err); err != nil {
			return fmt.Errorf("registration failed: %w", err)
		}
		out().Success("Welcome, %s", u.DisplayName())
		return nil
	},
}

var authGoogleCmd = &cobra.Command{
	Use:   "google ID_TOKEN",
	Short: "Sign in with a Google ID token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, "GoogleLogin")
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.Track(""); err != nil {
			return err
		}

		u, err := a.Service().GoogleLogin(ctx, args[0])
		if err := a.Finish(err); err != nil {
			return fmt.Errorf("google sign-in failed: %w", err)
		}
		out().Success("Signed in as %s", u.DisplayName())
		return nil
	},
}

var authSMSCmd = &cobra.Command{
	Use:   "sms PHONE",
	Short: "Sign in with a code texted to PHONE",
	Long: `Sign in with a code texted to PHONE, given in E.164 form such as
+14155552671. An account is created for a new number; --first-name and
--last-name name it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		first, _ := cmd.Flags().GetString("first-name")
		last, _ := cmd.Flags().GetString("last-name")

		a, err := newApp(ctx, "SMSLogin")
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.Track(args[0]); err != nil {
			return err
		}

		if err := a.Service().SendSMSCode(ctx, args[0]); err != nil {
			return a.Finish(err)
		}
		code, err := readLine("Verification code: ")
		if err != nil {
			return a.Finish(err)
		}
		u, err := a.Service().VerifySMSCode(ctx, model.SMSVerifyRequest{
			PhoneNumber: args[0], VerificationCode: code, FirstName: first, LastName: last,
		})
		if err := a.Finish(err); err != nil {
			return fmt.Errorf("sms sign-in failed: %w", err)
		}
		out().Success("Signed in as %s", u.DisplayName())
		return nil
	},
}

var authWhoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in account",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, "WhoAmI")
		if err != nil {
			return err
		}
		defer a.Close()

		u, err := a.Service().WhoAmI(ctx)
		if err != nil {
			return err
		}
		out().User(u)
		return nil
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "Logout")
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.Track(""); err != nil {
			return err
		}

		if err := a.Finish(a.Service().Logout()); err != nil {
			return err
		}
		fmt.Println("Signed out.")
		return nil
	},
}

func init() {
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authRegisterCmd)
	authRegisterCmd.Flags().String("first-name", "", "First name")
	authRegisterCmd.Flags().String("last-name", "", "Last name")
	authCmd.AddCommand(authGoogleCmd)
	authCmd.AddCommand(authSMSCmd)
	authSMSCmd.Flags().String("first-name", "", "First name for a new account")
	authSMSCmd.Flags().String("last-name", "", "Last name for a new account")
	authCmd.AddCommand(authWhoamiCmd)
	authCmd.AddCommand(authLogoutCmd)
}
