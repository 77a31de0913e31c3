package garage_test

import (
	"context"
	"errors"
	"testing"

	"garage-go/internal/credentials"
	"garage-go/internal/garage"
	"garage-go/internal/model"
)

func TestService_Login(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		email     string
		password  string
		wantErr   error
		wantCalls int
	}{
		{name: "success", email: " dana@example.com ", password: "hunter22", wantCalls: 1},
		{name: "wrong password", email: "dana@example.com", password: "nope", wantErr: garage.ErrUnauthorized, wantCalls: 1},
		{name: "missing email", email: "  ", password: "x", wantErr: garage.ErrValidation},
		{name: "missing password", email: "dana@example.com", wantErr: garage.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			_ = e.tokens.Clear()

			u, err := e.svc.Login(ctx, tt.email, tt.password)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Login() error = %v, want %v", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("Login() error = %v", err)
			}
			if n := e.backend.Calls("Login"); n != tt.wantCalls {
				t.Errorf("Login calls = %d, want %d", n, tt.wantCalls)
			}

			tok, _ := e.tokens.Token(ctx)
			if tt.wantErr == nil {
				if u.Email != "dana@example.com" || tok == "" {
					t.Errorf("user = %+v, token = %q", u, tok)
				}
			} else if tok != "" {
				t.Errorf("token = %q, want none stored after failure", tok)
			}
		})
	}
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()
	valid := model.RegisterRequest{Email: "sam@example.com", Password: "pw", FirstName: "Sam", LastName: "Lee"}

	tests := []struct {
		name    string
		mutate  func(*model.RegisterRequest)
		wantErr error
	}{
		{name: "success", mutate: func(*model.RegisterRequest) {}},
		{name: "invalid email", mutate: func(r *model.RegisterRequest) { r.Email = "not-an-email" }, wantErr: garage.ErrValidation},
		{name: "missing last name", mutate: func(r *model.RegisterRequest) { r.LastName = " " }, wantErr: garage.ErrValidation},
		{name: "missing password", mutate: func(r *model.RegisterRequest) { r.Password = "" }, wantErr: garage.ErrValidation},
		{name: "taken", mutate: func(r *model.RegisterRequest) { r.Email = "dana@example.com" }, wantErr: garage.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			req := valid
			tt.mutate(&req)

			u, err := e.svc.Register(ctx, req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Register() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Register() error = %v", err)
			}
			if u.FirstName != "Sam" {
				t.Errorf("FirstName = %q, want Sam", u.FirstName)
			}
		})
	}
}

func TestService_GoogleLogin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	if _, err := e.svc.GoogleLogin(ctx, " "); !errors.Is(err, garage.ErrValidation) {
		t.Errorf("GoogleLogin(empty) error = %v, want ErrValidation", err)
	}
	if _, err := e.svc.GoogleLogin(ctx, "forged"); !errors.Is(err, garage.ErrUnauthorized) {
		t.Errorf("GoogleLogin(forged) error = %v, want ErrUnauthorized", err)
	}

	u, err := e.svc.GoogleLogin(ctx, "google:new@example.com")
	if err != nil {
		t.Fatalf("GoogleLogin() error = %v", err)
	}
	if u.OAuthProvider != "google" {
		t.Errorf("OAuthProvider = %q, want google", u.OAuthProvider)
	}
}

func TestService_SMSLogin(t *testing.T) {
	ctx := context.Background()
	const phone = "+14155552671"

	t.Run("rejects malformed numbers locally", func(t *testing.T) {
		e := newEnv(t)
		for _, bad := range []string{"", "4155552671", "+0123", "+1 415 555"} {
			if err := e.svc.SendSMSCode(ctx, bad); !errors.Is(err, garage.ErrValidation) {
				t.Errorf("SendSMSCode(%q) error = %v, want ErrValidation", bad, err)
			}
		}
		if n := e.backend.Calls("SendSMSCode"); n != 0 {
			t.Errorf("SendSMSCode calls = %d, want 0", n)
		}
	})

	t.Run("new number creates account", func(t *testing.T) {
		e := newEnv(t)
		_ = e.tokens.Clear()
		if err := e.svc.SendSMSCode(ctx, " "+phone+" "); err != nil {
			t.Fatalf("SendSMSCode() error = %v", err)
		}
		code := e.backend.SMSCode(phone)
		if code == "" {
			t.Fatal("no code was sent")
		}

		u, err := e.svc.VerifySMSCode(ctx, model.SMSVerifyRequest{
			PhoneNumber: phone, VerificationCode: code, FirstName: " Ana ", LastName: "Cruz",
		})
		if err != nil {
			t.Fatalf("VerifySMSCode() error = %v", err)
		}
		if u.PhoneNumber != phone || !u.PhoneVerified || u.FirstName != "Ana" {
			t.Errorf("user = %+v", u)
		}
		if tok, _ := e.tokens.Token(ctx); tok == "" {
			t.Error("token not stored")
		}

		// A second login with the same number finds the same account.
		if err := e.svc.SendSMSCode(ctx, phone); err != nil {
			t.Fatalf("SendSMSCode() error = %v", err)
		}
		again, err := e.svc.VerifySMSCode(ctx, model.SMSVerifyRequest{PhoneNumber: phone, VerificationCode: e.backend.SMSCode(phone)})
		if err != nil {
			t.Fatalf("VerifySMSCode() error = %v", err)
		}
		if again.ID != u.ID {
			t.Errorf("second login ID = %d, want %d", again.ID, u.ID)
		}
	})

	t.Run("wrong code", func(t *testing.T) {
		e := newEnv(t)
		_ = e.tokens.Clear()
		if err := e.svc.SendSMSCode(ctx, phone); err != nil {
			t.Fatalf("SendSMSCode() error = %v", err)
		}
		_, err := e.svc.VerifySMSCode(ctx, model.SMSVerifyRequest{PhoneNumber: phone, VerificationCode: "000000"})
		if !errors.Is(err, garage.ErrValidation) {
			t.Fatalf("VerifySMSCode(wrong) error = %v, want ErrValidation", err)
		}
		if tok, _ := e.tokens.Token(ctx); tok != "" {
			t.Errorf("token = %q, want none stored", tok)
		}
	})

	t.Run("missing code", func(t *testing.T) {
		e := newEnv(t)
		_, err := e.svc.VerifySMSCode(ctx, model.SMSVerifyRequest{PhoneNumber: phone})
		if !errors.Is(err, garage.ErrValidation) {
			t.Fatalf("VerifySMSCode(no code) error = %v, want ErrValidation", err)
		}
		if n := e.backend.Calls("VerifySMSCode"); n != 0 {
			t.Errorf("VerifySMSCode calls = %d, want 0", n)
		}
	})
}

func TestService_WhoAmI(t *testing.T) {
	ctx := context.Background()

	t.Run("logged in", func(t *testing.T) {
		e := newEnv(t)
		u, err := e.svc.WhoAmI(ctx)
		if err != nil {
			t.Fatalf("WhoAmI() error = %v", err)
		}
		if u.ID != e.user.ID {
			t.Errorf("WhoAmI().ID = %d, want %d", u.ID, e.user.ID)
		}
	})

	t.Run("no token skips backend", func(t *testing.T) {
		e := newEnv(t)
		svc := garage.NewService(e.backend, credentials.NewMemoryStore(""), nil, nil, nil, nil, nil)
		if _, err := svc.WhoAmI(ctx); !errors.Is(err, garage.ErrUnauthorized) {
			t.Fatalf("WhoAmI() error = %v, want ErrUnauthorized", err)
		}
		if n := e.backend.Calls("CurrentUser"); n != 0 {
			t.Errorf("CurrentUser calls = %d, want 0", n)
		}
	})

	t.Run("logout", func(t *testing.T) {
		e := newEnv(t)
		if err := e.svc.Logout(); err != nil {
			t.Fatalf("Logout() error = %v", err)
		}
		if _, err := e.svc.WhoAmI(ctx); !errors.Is(err, garage.ErrUnauthorized) {
			t.Errorf("WhoAmI() after logout error = %v, want ErrUnauthorized", err)
		}
		if err := e.svc.Logout(); err != nil {
			t.Errorf("second Logout() error = %v", err)
		}
	})
}
