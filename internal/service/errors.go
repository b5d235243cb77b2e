package service

import "errors"

var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("service: not found")
	// ErrInvalidCredentials indicates provided credentials are wrong.
	ErrInvalidCredentials = errors.New("service: invalid credentials")
	// ErrRateLimited indicates the caller exceeded allowed attempts.
	ErrRateLimited = errors.New("service: rate limited")
	// ErrAccountDisabled indicates the account is disabled or banned.
	ErrAccountDisabled = errors.New("service: account disabled")
	// ErrUnauthorized indicates missing or invalid auth tokens.
	ErrUnauthorized = errors.New("service: unauthorized")
	// ErrForbidden indicates the caller may not act on this resource.
	ErrForbidden = errors.New("service: forbidden")
	// ErrInvalidRefreshToken indicates refresh token problems.
	ErrInvalidRefreshToken = errors.New("service: invalid refresh token")
	// ErrInvalidEmail indicates malformed email inputs.
	ErrInvalidEmail = errors.New("service: invalid email")
	// ErrInvalidPhone indicates a malformed phone number.
	ErrInvalidPhone = errors.New("service: invalid phone number")
	// ErrInvalidPassword indicates the password does not meet requirements.
	ErrInvalidPassword = errors.New("service: invalid password")
	// ErrEmailExists indicates the email is already registered.
	ErrEmailExists = errors.New("service: email already exists")
	// ErrPhoneExists indicates the phone number is already registered.
	ErrPhoneExists = errors.New("service: phone number already exists")
	// ErrInvalidToken indicates a temporary token does not exist.
	ErrInvalidToken = errors.New("service: invalid token")
	// ErrTokenExpired indicates the token's validity window lapsed.
	ErrTokenExpired = errors.New("service: token expired")
	// ErrTokenUsed indicates the single-use token was already redeemed.
	ErrTokenUsed = errors.New("service: token already used")
	// ErrValidation indicates request data failed validation.
	ErrValidation = errors.New("service: validation failed")

	// ErrCooldownActive indicates a resend was requested before the cooldown lapsed.
	ErrCooldownActive = errors.New("service: cooldown active")
	// ErrInvalidVerificationCode indicates the submitted code mismatched or expired.
	ErrInvalidVerificationCode = errors.New("service: invalid verification code")
	// ErrTooManyAttempts indicates the verification attempt budget is exhausted.
	ErrTooManyAttempts = errors.New("service: too many attempts")
	// ErrProviderFailure indicates an upstream provider failed on its side.
	ErrProviderFailure = errors.New("service: provider failure")

	// ErrCartEmpty indicates checkout was requested on an empty cart.
	ErrCartEmpty = errors.New("service: cart is empty")
	// ErrInsufficientStock indicates a product cannot cover the requested quantity.
	ErrInsufficientStock = errors.New("service: insufficient stock")
	// ErrProductUnavailable indicates the product is inactive or missing.
	ErrProductUnavailable = errors.New("service: product unavailable")

	// ErrInvalidTransition indicates the order status change is not allowed.
	ErrInvalidTransition = errors.New("service: invalid status transition")
	// ErrOrderNotAvailable indicates the order cannot be accepted in its current state.
	ErrOrderNotAvailable = errors.New("service: order not available")
	// ErrOrderNotCancellable indicates the order has progressed past cancellation.
	ErrOrderNotCancellable = errors.New("service: order not cancellable")
	// ErrPaymentRequired indicates the order has not been paid for yet.
	ErrPaymentRequired = errors.New("service: payment required")
	// ErrCourierNotApproved indicates the courier account is pending review.
	ErrCourierNotApproved = errors.New("service: courier not approved")
	// ErrNoOffer indicates the courier holds no offer for the order.
	ErrNoOffer = errors.New("service: no offer for this order")

	// ErrDuplicatePlate indicates another active vehicle already uses the plate.
	ErrDuplicatePlate = errors.New("service: duplicate plate number")

	// ErrInsufficientBalance indicates the wallet cannot cover the amount.
	ErrInsufficientBalance = errors.New("service: insufficient balance")
	// ErrAmountTooSmall indicates the amount is below the accepted minimum.
	ErrAmountTooSmall = errors.New("service: amount below minimum")
	// ErrDuplicateReference indicates the payment reference was already used.
	ErrDuplicateReference = errors.New("service: duplicate reference")
	// ErrInvalidSignature indicates a webhook signature check failed.
	ErrInvalidSignature = errors.New("service: invalid signature")
	// ErrEventProcessed indicates a webhook event was already handled.
	ErrEventProcessed = errors.New("service: event already processed")
)
