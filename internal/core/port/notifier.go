package port

import "context"

// VerificationSender delivers one-time codes out of band. The core only
// requests delivery; it never validates that delivery succeeded.
type VerificationSender interface {
	SendVerificationCode(ctx context.Context, email, code string) error
}
