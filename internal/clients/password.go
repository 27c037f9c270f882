package clients

import (
	"context"

	"aki/bff/internal/httpclient"
	"aki/bff/internal/model"
)

// PasswordFunction is the gateway to the serverless password-recovery function.
type PasswordFunction struct {
	http *httpclient.Client
}

func NewPasswordFunction(client *httpclient.Client) *PasswordFunction {
	return &PasswordFunction{http: client}
}

func (f *PasswordFunction) SendPasswordRecovery(ctx context.Context, email string) error {
	body := map[string]string{"teacher_email": email, "emailType": "recovery"}
	return f.http.Post(ctx, "/api/email/password-recovery", body, nil)
}

func (f *PasswordFunction) ValidateResetToken(ctx context.Context, token string) (model.TokenValidation, error) {
	return postEntity[model.TokenValidation](ctx, f.http, "/api/email/validate-token", map[string]string{"token": token})
}
