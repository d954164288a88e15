package services

import (
	"math"

	"voltprep/internal/models"
)

// LevelTier 等级表中的一行
type LevelTier struct {
	Threshold int
	Level     int
	Title     string
}

const MaxLevel = 10

// 阈值严格递增，不要在运行时计算
var levelTiers = [MaxLevel]LevelTier{
	{0, 1, "Apprentice"},
	{500, 2, "Wire Puller"},
	{1200, 3, "Circuit Tracer"},
	{2200, 4, "Conduit Bender"},
	{3500, 5, "Panel Builder"},
	{5000, 6, "Journeyman"},
	{7000, 7, "Code Expert"},
	{10000, 8, "Foreman"},
	{14000, 9, "Master Candidate"},
	{20000, 10, "Master Electrician"},
}

// LevelTiers 返回等级表副本
func LevelTiers() []LevelTier {
	tiers := levelTiers
	return tiers[:]
}

// LevelFromXP 从最高阈值往下找第一个不超过 xp 的等级
func LevelFromXP(xp int) int {
	for i := len(levelTiers) - 1; i >= 0; i-- {
		if xp >= levelTiers[i].Threshold {
			return levelTiers[i].Level
		}
	}
	return 1
}

func TitleForLevel(level int) string {
	if level < 1 || level > MaxLevel {
		return levelTiers[0].Title
	}
	return levelTiers[level-1].Title
}

// ThresholdForLevel 未知等级按 1 级处理
func ThresholdForLevel(level int) int {
	if level < 1 || level > MaxLevel {
		return 0
	}
	return levelTiers[level-1].Threshold
}

// Progress 当前等级内的进度
type Progress struct {
	Current    int `json:"current"`
	Needed     int `json:"needed"`
	Percentage int `json:"percentage"`
}

func XPProgress(xp, level int) Progress {
	if level >= MaxLevel {
		return Progress{Current: xp, Needed: xp, Percentage: 100}
	}
	if level < 1 {
		level = 1
	}

	base := ThresholdForLevel(level)
	needed := ThresholdForLevel(level+1) - base
	current := xp - base

	pct := int(math.Round(float64(current) / float64(needed) * 100))
	if pct > 100 {
		pct = 100
	}
	if pct < 0 {
		pct = 0
	}
	return Progress{Current: current, Needed: needed, Percentage: pct}
}

// LevelUp 升级事件，跨越多个等级时只报告最终等级
type LevelUp struct {
	NewLevel int    `json:"newLevel"`
	NewTitle string `json:"newTitle"`
}

func CheckLevelUp(previousXP, newXP int) *LevelUp {
	prev := LevelFromXP(previousXP)
	next := LevelFromXP(newXP)
	if next <= prev {
		return nil
	}
	return &LevelUp{NewLevel: next, NewTitle: TitleForLevel(next)}
}

// ApplyXP 是修改用户经验值的唯一入口，同时重算等级
func ApplyXP(u *models.User, amount int) {
	u.XP += amount
	if u.XP < 0 {
		u.XP = 0
	}
	u.Level = LevelFromXP(u.XP)
}
