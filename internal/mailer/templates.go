package mailer

import (
	"fmt"
	"html"
)

// Template builders for the account email flows. Subjects carry the product
// name suffix so customers can filter on it.

// PasswordResetMessage builds the email carrying a password reset link.
func PasswordResetMessage(to, name, resetURL string) Message {
	safeName := html.EscapeString(name)
	return Message{
		To:      to,
		Subject: "Password Reset Request - ShopCore CMS",
		HTML: fmt.Sprintf(`<p>Hi %s,</p>
<p>We received a request to reset your password. Click the link below to choose a new one. The link expires in 10 minutes.</p>
<p><a href="%s">Reset your password</a></p>
<p>If you did not request this, you can safely ignore this email. Your password will not change.</p>`, safeName, resetURL),
		Text: fmt.Sprintf(`Hi %s,

We received a request to reset your password. Open the link below to choose a new one. The link expires in 10 minutes.

%s

If you did not request this, you can safely ignore this email. Your password will not change.`, name, resetURL),
	}
}

// PasswordResetConfirmationMessage builds the notice sent after a reset
// completes.
func PasswordResetConfirmationMessage(to, name string) Message {
	safeName := html.EscapeString(name)
	return Message{
		To:      to,
		Subject: "Your Password Has Been Reset - ShopCore CMS",
		HTML: fmt.Sprintf(`<p>Hi %s,</p>
<p>Your password was just reset. If this was you, no further action is needed.</p>
<p>If you did not do this, please contact support immediately.</p>`, safeName),
		Text: fmt.Sprintf(`Hi %s,

Your password was just reset. If this was you, no further action is needed.

If you did not do this, please contact support immediately.`, name),
	}
}

// PasswordChangedMessage builds the notice sent after a logged-in password
// change.
func PasswordChangedMessage(to, name string) Message {
	safeName := html.EscapeString(name)
	return Message{
		To:      to,
		Subject: "Your Password Was Changed - ShopCore CMS",
		HTML: fmt.Sprintf(`<p>Hi %s,</p>
<p>The password on your account was just changed.</p>
<p>If you did not do this, please contact support immediately.</p>`, safeName),
		Text: fmt.Sprintf(`Hi %s,

The password on your account was just changed.

If you did not do this, please contact support immediately.`, name),
	}
}

// EmailVerificationMessage builds the email carrying a verification link.
func EmailVerificationMessage(to, name, verifyURL string) Message {
	safeName := html.EscapeString(name)
	return Message{
		To:      to,
		Subject: "Verify Your Email - ShopCore CMS",
		HTML: fmt.Sprintf(`<p>Hi %s,</p>
<p>Welcome! Please confirm your email address by clicking the link below. The link expires in 24 hours.</p>
<p><a href="%s">Verify your email</a></p>`, safeName, verifyURL),
		Text: fmt.Sprintf(`Hi %s,

Welcome! Please confirm your email address by opening the link below. The link expires in 24 hours.

%s`, name, verifyURL),
	}
}

// EmailVerifiedMessage builds the notice sent once verification succeeds.
func EmailVerifiedMessage(to, name string) Message {
	safeName := html.EscapeString(name)
	return Message{
		To:      to,
		Subject: "Email Verified - ShopCore CMS",
		HTML: fmt.Sprintf(`<p>Hi %s,</p>
<p>Your email address has been verified. Your account is all set.</p>`, safeName),
		Text: fmt.Sprintf(`Hi %s,

Your email address has been verified. Your account is all set.`, name),
	}
}
