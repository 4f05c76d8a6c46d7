// Package matcher 实现名单比对用的模糊匹配：为每个来源值挑选得分最高的候选串
package matcher

import (
	"strings"

	"github.com/PoorvaU/prn-extractor/internal/model"
)

// DefaultThreshold 默认接受阈值
const DefaultThreshold = 70

// FullScore 分词命中时的强制得分
const FullScore = 100

// Result 单个来源值的匹配结果
type Result struct {
	Candidate string `json:"candidate"` // 命中的候选串（原样）
	Index     int    `json:"index"`     // 候选串在序列中的下标，未命中为 -1
	Score     int    `json:"score"`     // 有效得分
	Matched   bool   `json:"matched"`
}

// NoMatch 未命中
var NoMatch = Result{Index: -1}

// EffectiveScore 计算来源值与某个候选串的有效得分
// 来源值的任一空白分隔词是候选串（小写）的子串时得分为 100，否则取 TokenSortRatio
func EffectiveScore(value, candidate string) int {
	v := lower(value)
	c := lower(candidate)

	score := TokenSortRatio(v, c)
	for _, part := range strings.Fields(v) {
		if strings.Contains(c, part) {
			return FullScore
		}
	}
	return score
}

// Match 在候选序列中寻找与 value 最相似的候选串
// 按顺序扫描，只有严格更高的得分才替换当前最佳（并列取先出现者）；
// 最佳得分低于 threshold 或候选为空时返回 NoMatch
func Match(value any, candidates []string, threshold int) Result {
	if len(candidates) == 0 {
		return NoMatch
	}

	text := model.Stringify(value)
	best := NoMatch
	bestScore := -1
	for i, candidate := range candidates {
		score := EffectiveScore(text, candidate)
		if score > bestScore {
			bestScore = score
			best = Result{Candidate: candidate, Index: i, Score: score}
		}
	}

	if bestScore < threshold {
		return NoMatch
	}
	best.Matched = true
	return best
}

// Matcher 绑定阈值的匹配器
type Matcher struct {
	Threshold int
}

// New 创建匹配器，threshold <= 0 时使用默认阈值
func New(threshold int) *Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Matcher{Threshold: threshold}
}

// Match 使用绑定的阈值匹配
func (m *Matcher) Match(value any, candidates []string) Result {
	return Match(value, candidates, m.Threshold)
}

// Pair 一条命中记录
type Pair struct {
	Source string `json:"source"`
	Result
}

// Outcome 批量匹配结果
type Outcome struct {
	Matched   []Pair   `json:"matched"`
	Unmatched []string `json:"unmatched"`
}

// MatchAll 批量匹配；空值被跳过，既不算命中也不算未命中
func (m *Matcher) MatchAll(values []any, candidates []string) Outcome {
	out := Outcome{Matched: []Pair{}, Unmatched: []string{}}
	for _, v := range values {
		text := model.Stringify(v)
		if strings.TrimSpace(text) == "" {
			continue
		}
		r := m.Match(text, candidates)
		if !r.Matched {
			out.Unmatched = append(out.Unmatched, text)
			continue
		}
		out.Matched = append(out.Matched, Pair{Source: text, Result: r})
	}
	return out
}

// Candidates 将任意列值转成候选串序列，nil 转成空串以保持下标与行对应
func Candidates(values []any) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = model.Stringify(v)
	}
	return out
}
