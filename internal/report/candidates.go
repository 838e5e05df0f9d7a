package report

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/garnizeh/ats/internal/models"
	"github.com/garnizeh/ats/pkg/repository"
)

const topSkillsCap = 10

type CandidatesOverview struct {
	Total          int64   `json:"total"`
	Pending        int64   `json:"pending"`
	Shortlisted    int64   `json:"shortlisted"`
	Hired          int64   `json:"hired"`
	Rejected       int64   `json:"rejected"`
	Other          int64   `json:"other"`
	ConversionRate float64 `json:"conversionRate"`
}

type ConversionRates struct {
	ShortlistRate float64 `json:"shortlistRate"`
	HireRate      float64 `json:"hireRate"`
}

type ExperienceCount struct {
	Experience int64 `json:"experience"`
	Count      int64 `json:"count"`
}

type SkillCount struct {
	Skill string `json:"skill"`
	Count int64  `json:"count"`
}

type CandidateMetrics struct {
	Overview           CandidatesOverview            `json:"overview"`
	ConversionRates    ConversionRates               `json:"conversionRates"`
	Trends             PeriodCounts                  `json:"trends"`
	ExperienceLevels   []ExperienceCount             `json:"experienceLevels"`
	TopSkills          []SkillCount                  `json:"topSkills"`
	StatusBreakdown    []repository.Group            `json:"statusBreakdown"`
	RecentApplications []models.CandidateApplication `json:"recentApplications"`
}

// Candidates summarizes candidate applications. Statuses are matched
// case-insensitively, so pipeline labels such as "Hired" count as hires.
func Candidates(ctx context.Context, s repository.Store, w Window, lim Limits) (*CandidateMetrics, error) {
	var (
		m                   CandidateMetrics
		statuses, expGroups []repository.Group
		skilled             []models.CandidateApplication
	)

	b := newBatch(ctx, s)
	b.groupBy(&statuses, repository.Candidates, repository.GroupQuery{By: "status"})
	b.groupBy(&expGroups, repository.Candidates, repository.GroupQuery{
		By:    "yearsOfExperience",
		Where: []repository.Cond{repository.NotNull("yearsOfExperience")},
	})
	b.count(&m.Trends.ThisMonth, repository.Candidates, repository.Between("appliedAt", w.MonthStart, w.MonthEnd)...)
	b.count(&m.Trends.ThisYear, repository.Candidates, repository.Between("appliedAt", w.YearStart, w.YearEnd)...)
	b.run(func(ctx context.Context) error {
		var err error
		skilled, err = s.FindCandidates(ctx, repository.Query{Where: []repository.Cond{repository.NotNull("keySkills")}})
		return err
	})
	b.run(func(ctx context.Context) error {
		var err error
		m.RecentApplications, err = s.FindCandidates(ctx, repository.Query{OrderBy: "appliedAt", Desc: true, Limit: lim.Recent})
		return err
	})
	if err := b.wait(); err != nil {
		return nil, fmt.Errorf("candidate metrics: %w", err)
	}

	m.Overview = candidatesOverview(statuses)
	m.ConversionRates = ConversionRates{
		ShortlistRate: Rate(m.Overview.Shortlisted, m.Overview.Total),
		HireRate:      Rate(m.Overview.Hired, m.Overview.Total),
	}
	m.StatusBreakdown = statuses

	experience, err := experienceLevels(expGroups)
	if err != nil {
		return nil, fmt.Errorf("candidate metrics: %w", err)
	}
	m.ExperienceLevels = experience

	skills := make([]string, 0, len(skilled))
	for _, c := range skilled {
		skills = append(skills, c.KeySkills)
	}
	m.TopSkills = TopSkills(skills, topSkillsCap)
	return &m, nil
}

func candidatesOverview(statuses []repository.Group) CandidatesOverview {
	var o CandidatesOverview
	for _, g := range statuses {
		switch models.FoldStatus(g.Key) {
		case models.CandidatePending:
			o.Pending += g.Count
		case models.CandidateShortlisted:
			o.Shortlisted += g.Count
		case models.CandidateHired:
			o.Hired += g.Count
		case models.CandidateRejected:
			o.Rejected += g.Count
		default:
			o.Other += g.Count
		}
	}
	o.Total = countOf(statuses)
	o.ConversionRate = Rate(o.Hired, o.Total)
	return o
}

func experienceLevels(groups []repository.Group) ([]ExperienceCount, error) {
	out := make([]ExperienceCount, 0, len(groups))
	for _, g := range groups {
		years, err := strconv.ParseInt(g.Key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("years of experience %q: %w", g.Key, err)
		}
		out = append(out, ExperienceCount{Experience: years, Count: g.Count})
	}
	return out, nil
}

// TopSkills counts comma-separated skills across lists and returns the n
// most frequent. Skills are trimmed and blanks skipped; ties keep the order
// in which skills were first seen.
func TopSkills(lists []string, n int) []SkillCount {
	counts := make(map[string]int64)
	var order []string
	for _, list := range lists {
		for skill := range strings.SplitSeq(list, ",") {
			skill = strings.TrimSpace(skill)
			if skill == "" {
				continue
			}
			if _, ok := counts[skill]; !ok {
				order = append(order, skill)
			}
			counts[skill]++
		}
	}

	out := make([]SkillCount, 0, len(order))
	for _, skill := range order {
		out = append(out, SkillCount{Skill: skill, Count: counts[skill]})
	}
	slices.SortStableFunc(out, func(a, b SkillCount) int {
		switch {
		case a.Count > b.Count:
			return -1
		case a.Count < b.Count:
			return 1
		}
		return 0
	})
	return capped(out, n)
}
