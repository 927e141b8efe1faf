package service

import (
	"strings"

	"github.com/renthportal/renthportal-sub001/internal/constants"
)

var knownConditionTags = func() map[string]struct{} {
	m := make(map[string]struct{}, len(constants.ConditionVocabulary))
	for _, tag := range constants.ConditionVocabulary {
		m[tag] = struct{}{}
	}
	return m
}()

// IsKnownConditionTag 是否属于固定词表
func IsKnownConditionTag(tag string) bool {
	_, ok := knownConditionTags[tag]
	return ok
}

// SelectConditionTag 选中一个标签
// 选中 NO DAMAGE 会清空其它标签；选中其它标签会移除 NO DAMAGE。
func SelectConditionTag(current []string, tag string) []string {
	if tag == constants.ConditionNoDamage {
		return []string{constants.ConditionNoDamage}
	}
	next := make([]string, 0, len(current)+1)
	for _, existing := range current {
		if existing == constants.ConditionNoDamage || existing == tag {
			continue
		}
		next = append(next, existing)
	}
	return append(next, tag)
}

// DeselectConditionTag 取消选中
func DeselectConditionTag(current []string, tag string) []string {
	next := make([]string, 0, len(current))
	for _, existing := range current {
		if existing != tag {
			next = append(next, existing)
		}
	}
	return next
}

// NormalizeConditionTags 按提交顺序依次选中，得到满足互斥规则的标签集合
func NormalizeConditionTags(tags []string) ([]string, error) {
	out := make([]string, 0, len(tags))
	for _, raw := range tags {
		tag := strings.TrimSpace(raw)
		if tag == "" {
			continue
		}
		if !IsKnownConditionTag(tag) {
			return nil, ErrUnknownConditionTag
		}
		if containsTag(out, tag) {
			continue
		}
		out = SelectConditionTag(out, tag)
	}
	return out, nil
}

// RequiresConditionDetail 含有损伤类标签时需要填写说明
func RequiresConditionDetail(tags []string) bool {
	for _, tag := range tags {
		if tag != constants.ConditionNoDamage {
			return true
		}
	}
	return false
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
