package models

// TaskCategory groups tasks the way the mini app tabs do
type TaskCategory string

const (
	CategoryDaily     TaskCategory = "daily"
	CategoryActivity  TaskCategory = "activity"
	CategoryReferral  TaskCategory = "referral"
	CategoryUsage     TaskCategory = "usage"
	CategoryPurchases TaskCategory = "purchases"
	CategoryLevels    TaskCategory = "levels"
)

// Categories in the order the client renders them
var TaskCategories = []TaskCategory{
	CategoryDaily,
	CategoryActivity,
	CategoryReferral,
	CategoryUsage,
	CategoryPurchases,
	CategoryLevels,
}

// RewardKind tags a single item of a task's reward bundle
type RewardKind string

const (
	RewardXP       RewardKind = "xp"        // experience points
	RewardMessages RewardKind = "messages"  // spendable currency
	RewardPromo    RewardKind = "promocode" // one code from the percent's pool
)

// RewardItem is one grant inside a bundle. Amount is set for xp/messages,
// Percent for promocode items.
type RewardItem struct {
	Kind    RewardKind `json:"kind"`
	Amount  int64      `json:"amount,omitempty"`
	Percent int        `json:"percent,omitempty"`
}

// TaskDefinition is a static catalog entry: what to count, how far, and what
// gets paid out when the target is reached. Never mutated after init.
type TaskDefinition struct {
	Code        string       `json:"code"`
	Category    TaskCategory `json:"category"`
	Target      int64        `json:"target"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Rewards     []RewardItem `json:"rewards"`
}

// RewardTotals sums the bundle by kind. Promo items are returned as the list
// of discount percentages to draw from the pools.
func (d TaskDefinition) RewardTotals() (xp int64, messages int64, promoPercents []int) {
	for _, item := range d.Rewards {
		switch item.Kind {
		case RewardXP:
			xp += item.Amount
		case RewardMessages:
			messages += item.Amount
		case RewardPromo:
			promoPercents = append(promoPercents, item.Percent)
		}
	}
	return xp, messages, promoPercents
}

func xpReward(amount int64) RewardItem   { return RewardItem{Kind: RewardXP, Amount: amount} }
func msgReward(amount int64) RewardItem  { return RewardItem{Kind: RewardMessages, Amount: amount} }
func promoReward(percent int) RewardItem { return RewardItem{Kind: RewardPromo, Percent: percent} }

// TaskCatalog is the full static task registry, mirroring the production
// config. Level task targets are the XP thresholds of the level ladder (see
// levels.go) — their progress is rewritten to the user's XP total on sync.
var TaskCatalog = []TaskDefinition{
	// Daily
	{Code: "D_DAILY", Category: CategoryDaily, Target: 1,
		Title: "Daily visit", Description: "Open the app today",
		Rewards: []RewardItem{xpReward(2)}},
	{Code: "D_REQ_DAILY", Category: CategoryDaily, Target: 1,
		Title: "Daily reading", Description: "Get at least one reading today",
		Rewards: []RewardItem{xpReward(3)}},

	// Activity
	{Code: "D_1", Category: CategoryActivity, Target: 1,
		Title: "Subscribe to the channel", Description: "Join our Telegram channel",
		Rewards: []RewardItem{xpReward(10), msgReward(1)}},
	{Code: "D_2", Category: CategoryActivity, Target: 1,
		Title: "Enable notifications", Description: "Allow the bot to message you",
		Rewards: []RewardItem{xpReward(30), msgReward(10)}},
	{Code: "D_3", Category: CategoryActivity, Target: 1,
		Title: "Enable daily tips", Description: "Turn on the card of the day",
		Rewards: []RewardItem{xpReward(30), msgReward(5), promoReward(5)}},
	{Code: "D_4", Category: CategoryActivity, Target: 1,
		Title: "Complete your profile", Description: "Fill in your birth details",
		Rewards: []RewardItem{xpReward(80), msgReward(15), promoReward(10)}},
	{Code: "D_5", Category: CategoryActivity, Target: 1,
		Title: "Leave a review", Description: "Rate the app in the channel",
		Rewards: []RewardItem{xpReward(150), msgReward(30), promoReward(15)}},

	// Referral
	{Code: "REF_1", Category: CategoryReferral, Target: 1,
		Title: "Invite a friend", Description: "One friend joins via your link",
		Rewards: []RewardItem{xpReward(70), msgReward(10), promoReward(5)}},
	{Code: "REF_2", Category: CategoryReferral, Target: 2,
		Title: "Invite 2 friends", Description: "Two friends join via your link",
		Rewards: []RewardItem{xpReward(120), msgReward(15), promoReward(10)}},
	{Code: "REF_3", Category: CategoryReferral, Target: 3,
		Title: "Invite 3 friends", Description: "Three friends join via your link",
		Rewards: []RewardItem{xpReward(220), msgReward(35), promoReward(20)}},
	{Code: "REF_4", Category: CategoryReferral, Target: 4,
		Title: "Invite 4 friends", Description: "Four friends join via your link",
		Rewards: []RewardItem{xpReward(370), msgReward(75), promoReward(25)}},
	{Code: "REF_5", Category: CategoryReferral, Target: 5,
		Title: "Invite 5 friends", Description: "Five friends join via your link",
		Rewards: []RewardItem{xpReward(900), msgReward(200), promoReward(30)}},

	// Usage
	{Code: "USE_1", Category: CategoryUsage, Target: 5,
		Title: "5 readings", Description: "Get 5 readings in total",
		Rewards: []RewardItem{xpReward(50), msgReward(5)}},
	{Code: "USE_2", Category: CategoryUsage, Target: 10,
		Title: "10 readings", Description: "Get 10 readings in total",
		Rewards: []RewardItem{xpReward(80), msgReward(10)}},
	{Code: "USE_3", Category: CategoryUsage, Target: 20,
		Title: "20 readings", Description: "Get 20 readings in total",
		Rewards: []RewardItem{xpReward(150), msgReward(25), promoReward(5)}},
	{Code: "USE_4", Category: CategoryUsage, Target: 30,
		Title: "30 readings", Description: "Get 30 readings in total",
		Rewards: []RewardItem{xpReward(300), msgReward(50), promoReward(10)}},
	{Code: "USE_5", Category: CategoryUsage, Target: 50,
		Title: "50 readings", Description: "Get 50 readings in total",
		Rewards: []RewardItem{xpReward(800), msgReward(150), promoReward(25)}},

	// Purchases. BUY_0 is the first-purchase bonus; the rest match pack tiers.
	// The 3% promo tier has no backing pool, so BUY_0 pays out without a code.
	{Code: "BUY_0", Category: CategoryPurchases, Target: 1,
		Title: "First purchase", Description: "Buy any message pack",
		Rewards: []RewardItem{xpReward(50), msgReward(5), promoReward(3)}},
	{Code: "BUY_1", Category: CategoryPurchases, Target: 1,
		Title: "Starter pack", Description: "Buy the starter pack",
		Rewards: []RewardItem{xpReward(80), msgReward(10), promoReward(5)}},
	{Code: "BUY_2", Category: CategoryPurchases, Target: 1,
		Title: "Small pack", Description: "Buy the small pack",
		Rewards: []RewardItem{xpReward(150), msgReward(30), promoReward(10)}},
	{Code: "BUY_3", Category: CategoryPurchases, Target: 1,
		Title: "Medium pack", Description: "Buy the medium pack",
		Rewards: []RewardItem{xpReward(300), msgReward(80), promoReward(20)}},
	{Code: "BUY_4", Category: CategoryPurchases, Target: 1,
		Title: "Large pack", Description: "Buy the large pack",
		Rewards: []RewardItem{xpReward(750), msgReward(150), promoReward(25)}},
	{Code: "BUY_5", Category: CategoryPurchases, Target: 1,
		Title: "Mystic pack", Description: "Buy the mystic pack",
		Rewards: []RewardItem{xpReward(1500), msgReward(300), promoReward(30)}},

	// Levels — targets are the ladder thresholds, progress is the XP total
	{Code: "LEVEL_UP_1", Category: CategoryLevels, Target: 100,
		Title: "Seeker", Description: "Reach 100 XP",
		Rewards: []RewardItem{xpReward(20)}},
	{Code: "LEVEL_UP_2", Category: CategoryLevels, Target: 300,
		Title: "Initiated", Description: "Reach 300 XP",
		Rewards: []RewardItem{xpReward(30), msgReward(10)}},
	{Code: "LEVEL_UP_3", Category: CategoryLevels, Target: 700,
		Title: "Card Keeper", Description: "Reach 700 XP",
		Rewards: []RewardItem{xpReward(50), msgReward(30)}},
	{Code: "LEVEL_UP_4", Category: CategoryLevels, Target: 1200,
		Title: "Moon Priestess", Description: "Reach 1200 XP",
		Rewards: []RewardItem{xpReward(100), msgReward(80)}},
	{Code: "LEVEL_UP_5", Category: CategoryLevels, Target: 2000,
		Title: "Circle Leader", Description: "Reach 2000 XP",
		Rewards: []RewardItem{xpReward(150), msgReward(150)}},
	{Code: "LEVEL_UP_6", Category: CategoryLevels, Target: 3000,
		Title: "High Mystery", Description: "Reach 3000 XP",
		Rewards: []RewardItem{xpReward(200), msgReward(200)}},
}

var taskIndex = func() map[string]TaskDefinition {
	idx := make(map[string]TaskDefinition, len(TaskCatalog))
	for _, def := range TaskCatalog {
		idx[def.Code] = def
	}
	return idx
}()

// TaskByCode looks up a catalog entry. Callers must treat a missing code as a
// no-op on increments — upstream call sites probe codes defensively.
func TaskByCode(code string) (TaskDefinition, bool) {
	def, ok := taskIndex[code]
	return def, ok
}

// TasksInCategory returns the catalog entries of one category in catalog order.
func TasksInCategory(category TaskCategory) []TaskDefinition {
	var defs []TaskDefinition
	for _, def := range TaskCatalog {
		if def.Category == category {
			defs = append(defs, def)
		}
	}
	return defs
}
