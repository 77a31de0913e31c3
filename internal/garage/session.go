package garage

import (
	"context"
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"garage-go/internal/model"
)

// Login exchanges email and password for a token and stores it.
func (s *Service) Login(ctx context.Context, email, password string) (*model.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, validationError("email and password are required")
	}
	resp, err := s.backend.Login(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("logging in: %w", err)
	}
	return s.storeSession(resp)
}

// Register creates an account and stores its token.
func (s *Service) Register(ctx context.Context, req model.RegisterRequest) (*model.User, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return nil, validationError("invalid email %q", req.Email)
	}
	if req.FirstName == "" || req.LastName == "" {
		return nil, validationError("first and last name are required")
	}
	if req.Password == "" {
		return nil, validationError("password is required")
	}
	resp, err := s.backend.Register(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("registering: %w", err)
	}
	return s.storeSession(resp)
}

// GoogleLogin exchanges a Google ID token for a session.
func (s *Service) GoogleLogin(ctx context.Context, credential string) (*model.User, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, validationError("a Google ID token is required")
	}
	resp, err := s.backend.GoogleLogin(ctx, credential)
	if err != nil {
		return nil, fmt.Errorf("google login: %w", err)
	}
	return s.storeSession(resp)
}

// e164 matches an international phone number such as +14155552671.
var e164 = regexp.MustCompile(`^\+[1-9][0-9]{7,14}$`)

func checkPhone(phoneNumber string) (string, error) {
	phoneNumber = strings.TrimSpace(phoneNumber)
	if !e164.MatchString(phoneNumber) {
		return "", validationError("phone number %q must be in E.164 format (e.g. +14155552671)", phoneNumber)
	}
	return phoneNumber, nil
}

// SendSMSCode asks the backend to text a login code to phoneNumber.
func (s *Service) SendSMSCode(ctx context.Context, phoneNumber string) error {
	phone, err := checkPhone(phoneNumber)
	if err != nil {
		return err
	}
	if err := s.backend.SendSMSCode(ctx, phone); err != nil {
		return fmt.Errorf("sending sms code: %w", err)
	}
	s.logger.Info("sms code sent", "phone", phone)
	return nil
}

// VerifySMSCode exchanges a texted code for a session. The backend creates
// an account for an unknown number, named from req when given.
func (s *Service) VerifySMSCode(ctx context.Context, req model.SMSVerifyRequest) (*model.User, error) {
	phone, err := checkPhone(req.PhoneNumber)
	if err != nil {
		return nil, err
	}
	req.PhoneNumber = phone
	req.VerificationCode = strings.TrimSpace(req.VerificationCode)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	if req.VerificationCode == "" {
		return nil, validationError("a verification code is required")
	}
	resp, err := s.backend.VerifySMSCode(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("verifying sms code: %w", err)
	}
	return s.storeSession(resp)
}

func (s *Service) storeSession(resp *model.TokenResponse) (*model.User, error) {
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("login response carried no token")
	}
	if err := s.tokens.Save(resp.AccessToken); err != nil {
		return nil, fmt.Errorf("saving token: %w", err)
	}
	s.logger.Info("logged in", "user", resp.User.ID, "email", resp.User.Email)
	user := resp.User
	return &user, nil
}

// WhoAmI returns the logged-in user. Without a stored token it returns
// ErrUnauthorized without calling the backend.
func (s *Service) WhoAmI(ctx context.Context) (*model.User, error) {
	tok, err := s.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading token: %w", err)
	}
	if tok == "" {
		return nil, ErrUnauthorized
	}
	u, err := s.backend.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading current user: %w", err)
	}
	return u, nil
}

// Logout forgets the stored token.
func (s *Service) Logout() error {
	if err := s.tokens.Clear(); err != nil {
		return fmt.Errorf("clearing token: %w", err)
	}
	s.logger.Info("logged out")
	return nil
}
