package settings

// DB config keys and defaults for settings.
const (
	// SiteNameKey is the DB config key for the UI site name.
	SiteNameKey = "SITE_NAME"
	// DefaultSiteName is the fallback UI site name.
	DefaultSiteName = "Unbox Me"
	// MaxCardsKey caps how many cards one box may hold.
	MaxCardsKey = "MAX_CARDS"
	// MaxUnlockDelayDaysKey caps the unlock delay of a single card.
	MaxUnlockDelayDaysKey = "MAX_UNLOCK_DELAY_DAYS"
	// OrderAbandonAfterHoursKey controls when pending orders are abandoned.
	OrderAbandonAfterHoursKey = "ORDER_ABANDON_AFTER_HOURS"
	// DefaultMaxCards is the fallback card limit.
	DefaultMaxCards = 7
	// DefaultMaxUnlockDelayDays is the fallback unlock delay limit.
	DefaultMaxUnlockDelayDays = 30
	// DefaultOrderAbandonAfterHours is the fallback abandon window (hours).
	DefaultOrderAbandonAfterHours = 24
)
