package sellers

// User-facing texts for the registration conversation.
const (
	msgWelcomeBack = "👋 Welcome back, %s!"

	msgAskOTP = "🔐 Please enter your seller registration OTP:\n\n" +
		"⚠️ The OTP is valid for 24 hours and can only be used once."

	msgOTPVerified = "✅ OTP verified!\n\nLet's register your business.\n" +
		"Please send your *Business Name* (e.g., FreshFarm Foods)."

	msgOTPInvalid = "❌ Invalid or expired OTP. You have %d attempts remaining. Try again:"

	msgOTPExhausted = "🚫 You've reached the maximum number of OTP attempts. " +
		"Please contact admin for a new code."

	msgNameTooShort = "❗ Business name is too short. Please enter a valid name."

	msgAskEmail = "📧 Great! Now send your *business email* (e.g., shop@example.com)."

	msgEmailInvalid = "❗ That doesn't look like a valid email. Try again (e.g., shop@example.com)."

	msgAskPhone = "📱 Got it. Finally, send your *phone number* with country code (e.g., +2348012345678)."

	msgPhoneInvalid = "❗ Invalid phone format. Include country code (e.g., +2348012345678)."

	msgRegistered = "🎉 Your seller account has been created successfully!"

	msgAlreadyRegistered = "⚠️ You already have a seller account registered with this Telegram account."

	msgCancelled = "❌ Registration cancelled. You can start again anytime with /start."

	msgInternalCheck = "⚠️ Could not check your account right now. Please try again later."

	msgInternalOTP = "⚠️ An internal error occurred while validating your OTP. Try again later."

	msgInternalCommit = "⚠️ Failed to create your seller account. Please try again later."
)
