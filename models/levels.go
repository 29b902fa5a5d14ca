package models

// Level is one step of the XP ladder. MaxXP is nil for the final level.
type Level struct {
	Level int    `json:"level"`
	Code  string `json:"code"`
	Title string `json:"title"`
	MinXP int64  `json:"min_xp"`
	MaxXP *int64 `json:"max_xp,omitempty"`
}

func maxXP(v int64) *int64 { return &v }

// Levels is the full ladder in ascending order
var Levels = []Level{
	{Level: 1, Code: "spark", Title: "Spark", MinXP: 0, MaxXP: maxXP(99)},
	{Level: 2, Code: "seeker", Title: "Seeker", MinXP: 100, MaxXP: maxXP(299)},
	{Level: 3, Code: "initiated", Title: "Initiated", MinXP: 300, MaxXP: maxXP(699)},
	{Level: 4, Code: "keeper", Title: "Card Keeper", MinXP: 700, MaxXP: maxXP(1199)},
	{Level: 5, Code: "moon_priestess", Title: "Moon Priestess", MinXP: 1200, MaxXP: maxXP(1999)},
	{Level: 6, Code: "circle_leader", Title: "Circle Leader", MinXP: 2000, MaxXP: maxXP(2999)},
	{Level: 7, Code: "high_mystery", Title: "High Mystery", MinXP: 3000},
}

// LevelTaskCodes lists the level-milestone tasks in threshold order. Each
// LEVEL_UP_n target equals Levels[n].MinXP; Level Sync rewrites their
// progress to the live XP total on every XP change.
var LevelTaskCodes = []string{
	"LEVEL_UP_1",
	"LEVEL_UP_2",
	"LEVEL_UP_3",
	"LEVEL_UP_4",
	"LEVEL_UP_5",
	"LEVEL_UP_6",
}

// LevelForXP returns the level the XP total falls into and the next level
// (nil at the top of the ladder).
func LevelForXP(xp int64) (current Level, next *Level) {
	current = Levels[0]
	for i, lvl := range Levels {
		if xp >= lvl.MinXP {
			current = lvl
			if i < len(Levels)-1 {
				n := Levels[i+1]
				next = &n
			} else {
				next = nil
			}
		}
	}
	return current, next
}
