// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/toeic/internal/platform/apperr"
	"github.com/taibuivan/toeic/internal/platform/notify"
	"github.com/taibuivan/toeic/internal/platform/sec"
	"github.com/taibuivan/toeic/internal/platform/validate"
)

// # Password Recovery

/*
ForgotPassword issues a reset code and mails the reset link.

Description: A new code overwrites any previous one. Delivery failures are
logged and counted but do not fail the request; the code stays stored.

Parameters:
  - ctx: context.Context
  - email: string

Returns:
  - error: RecordNotFound for unknown emails, storage errors
*/
func (service *Service) ForgotPassword(ctx context.Context, email string) error {
	user, err := service.userRepository.FindByEmail(ctx, email)
	if err != nil {
		if apperr.IsNotFound(err) {
			return apperr.RecordNotFound("Email not exists")
		}
		return err
	}

	code, err := sec.GenerateSecureToken(ResetCodeLength)
	if err != nil {
		return fmt.Errorf("auth_service_generate_reset_code_failed: %w", err)
	}

	expiresAt := service.clock.Now().Add(service.config.OTPTTL)
	if err := service.userRepository.SetResetCode(ctx, user.ID, code, expiresAt); err != nil {
		return err
	}
	service.metrics.OTPIssued()

	name := user.Name
	if name == "" {
		name = user.Username
	}

	message, err := notify.ResetPasswordMessage(user.Email, notify.ResetPasswordData{
		Name:      name,
		Link:      service.config.ClientURL + "reset-password/" + code + "/" + user.Email,
		ExpiresIn: humanizeDuration(service.config.OTPTTL),
	})
	if err != nil {
		return fmt.Errorf("auth_service_render_reset_email_failed: %w", err)
	}

	if err := notify.SendWithTimeout(ctx, service.notifier, message, service.config.NotifyTimeout); err != nil {
		service.metrics.NotifyFailure(service.config.NotifyDriver)
		service.logger.WarnContext(ctx, "notify_delivery_failed",
			slog.String("user_id", user.ID),
			slog.String("kind", message.Kind),
			slog.Any("error", err),
		)
	}

	service.logger.InfoContext(ctx, "auth_reset_code_issued", slog.String("user_id", user.ID))
	return nil
}

// ValidateOTP reports whether code is a live reset code. It changes nothing.
func (service *Service) ValidateOTP(ctx context.Context, code string) (bool, error) {
	_, err := service.userRepository.FindByResetCode(ctx, code, service.clock.Now())
	if err != nil {
		if apperr.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

/*
ResetPassword consumes a live reset code and sets a new password.

Description: An unknown, used or expired code answers false before the new
password is checked or hashed. The store applies the change only while the
code is live, so the code works exactly once. On success the lockout is
cleared and every issued token and refresh session of the identity is revoked.

Returns:
  - bool: false when the code is unknown, used or expired
  - error: VALIDATION_ERROR for a weak password on a live code, storage failures
*/
func (service *Service) ResetPassword(ctx context.Context, code, newPassword string) (bool, error) {
	live, err := service.ValidateOTP(ctx, code)
	if err != nil || !live {
		return false, err
	}

	validator := &validate.Validator{}
	if err := validator.MinLen(FieldNewPassword, newPassword, MinPasswordLength).Err(); err != nil {
		return false, err
	}

	hashedPassword, err := sec.HashPassword(newPassword)
	if err != nil {
		return false, fmt.Errorf("auth_service_reset_password_hash_failed: %w", err)
	}

	userID, err := service.userRepository.ConsumeResetCode(ctx, code, hashedPassword, service.clock.Now(), service.config.MaxLoginRetryLimit)
	if err != nil {
		if apperr.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}

	if err := service.RevokeCredentials(ctx, userID); err != nil {
		return false, err
	}

	service.logger.InfoContext(ctx, "auth_password_reset", slog.String("user_id", userID))
	return true, nil
}

// # Helpers

// contextWithTimeout is for methods whose parameter shadows the context package.
func contextWithTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, timeout)
}

// humanizeDuration renders whole minutes for email copy ("20 minutes").
func humanizeDuration(duration time.Duration) string {
	minutes := int(duration / time.Minute)
	if minutes == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}
