package core

import "strongholdcore/pkg/domain"

type (
	Throw      = domain.Throw
	ThrowKind  = domain.ThrowKind
	Vec2       = domain.Vec2
	Estimate   = domain.Estimate
	Cell       = domain.Cell
	Severity   = domain.Severity
	Advisory   = domain.Advisory
	Result     = domain.Result
	Rule       = domain.Rule
	RuleView   = domain.RuleView
	Parameters = domain.Parameters
	Session    = domain.Session
)

const (
	KindStandard  = domain.KindStandard
	KindAlternate = domain.KindAlternate
)

const (
	SeverityInfo = domain.SeverityInfo
	SeverityWarn = domain.SeverityWarn
)
