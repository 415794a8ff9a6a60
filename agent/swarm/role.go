package swarm

import (
	"fmt"
	"strings"

	"github.com/BaSui01/agentswarm/config"
)

// Role 定义 Agent 角色（封闭枚举）
type Role string

const (
	RoleWriter     Role = "writer"
	RoleAnalyzer   Role = "analyzer"
	RoleScheduler  Role = "scheduler"
	RoleResearcher Role = "researcher"
	RoleStrategist Role = "strategist"
	RoleEditor     Role = "editor"
	RoleNegotiator Role = "negotiator"
)

// Roles 返回全部角色，顺序固定
func Roles() []Role {
	return []Role{
		RoleWriter,
		RoleAnalyzer,
		RoleScheduler,
		RoleResearcher,
		RoleStrategist,
		RoleEditor,
		RoleNegotiator,
	}
}

// Valid 检查角色是否属于枚举
func (r Role) Valid() bool {
	for _, known := range Roles() {
		if r == known {
			return true
		}
	}
	return false
}

// Impact 决策影响等级
type Impact string

const (
	ImpactLow    Impact = "low"
	ImpactMedium Impact = "medium"
	ImpactHigh   Impact = "high"
)

// ParseImpact 解析影响等级，无法识别时返回 medium
func ParseImpact(s string) Impact {
	switch Impact(strings.ToLower(strings.TrimSpace(s))) {
	case ImpactLow:
		return ImpactLow
	case ImpactHigh:
		return ImpactHigh
	default:
		return ImpactMedium
	}
}

// =============================================================================
// 📋 能力目录
// =============================================================================

// CatalogEntry 目录中的一行：一个角色及其专长
type CatalogEntry struct {
	Role            Role     `json:"role"`
	Specializations []string `json:"specializations"`
}

// Catalog 角色 × 专长 表，组合式 Agent 池按此生成
type Catalog []CatalogEntry

// DefaultCatalog 默认目录：7 个角色，每个角色 5 个专长
func DefaultCatalog() Catalog {
	return Catalog{
		{Role: RoleWriter, Specializations: []string{"formal", "casual", "technical", "persuasive", "concise"}},
		{Role: RoleAnalyzer, Specializations: []string{"sentiment", "intent", "priority", "risk", "data"}},
		{Role: RoleScheduler, Specializations: []string{"meeting", "deadline", "calendar", "timezone", "reminder"}},
		{Role: RoleResearcher, Specializations: []string{"market", "competitor", "technical", "legal", "background"}},
		{Role: RoleStrategist, Specializations: []string{"negotiation", "relationship", "growth", "crisis", "planning"}},
		{Role: RoleEditor, Specializations: []string{"grammar", "tone", "clarity", "brevity", "style"}},
		{Role: RoleNegotiator, Specializations: []string{"vendor", "pricing", "contract", "partnership", "conflict"}},
	}
}

// Size 返回目录可生成的 Agent 数量
func (c Catalog) Size() int {
	n := 0
	for _, entry := range c {
		n += len(entry.Specializations)
	}
	return n
}

// CatalogFromConfig 从配置构造目录。空配置返回默认目录。
func CatalogFromConfig(entries []config.RoleConfig) (Catalog, error) {
	if len(entries) == 0 {
		return DefaultCatalog(), nil
	}

	catalog := make(Catalog, 0, len(entries))
	for i, entry := range entries {
		role := Role(strings.ToLower(strings.TrimSpace(entry.Role)))
		if !role.Valid() {
			return nil, fmt.Errorf("catalog[%d]: unknown role %q", i, entry.Role)
		}
		if len(entry.Specializations) == 0 {
			return nil, fmt.Errorf("catalog[%d]: role %s has no specializations", i, role)
		}
		specs := make([]string, 0, len(entry.Specializations))
		for _, s := range entry.Specializations {
			s = strings.ToLower(strings.TrimSpace(s))
			if s != "" {
				specs = append(specs, s)
			}
		}
		if len(specs) == 0 {
			return nil, fmt.Errorf("catalog[%d]: role %s has only blank specializations", i, role)
		}
		catalog = append(catalog, CatalogEntry{Role: role, Specializations: specs})
	}
	return catalog, nil
}
