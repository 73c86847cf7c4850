// Package core exposes the transactional service facade over the domain
// store: typed CRUD operations, harvest lifecycle, backup export/import,
// and derived analytics, all instrumented through pluggable observability
// hooks.
package core

import "agrocore/pkg/domain"

// Domain aliases keep facade signatures concise without re-declaring types.
type (
	Transaction     = domain.Transaction
	TransactionView = domain.TransactionView
	PersistentStore = domain.PersistentStore
	Result          = domain.Result
	RulesEngine     = domain.RulesEngine
)

// NewRulesEngine returns an empty rules engine.
func NewRulesEngine() *RulesEngine { return domain.NewRulesEngine() }
