package service

import (
	"strings"

	"github.com/renthportal/renthportal-sub001/internal/constants"
)

// Direction 交付方向：送达或回收
type Direction string

const (
	DirectionDelivery Direction = constants.DirectionDelivery
	DirectionReturn   Direction = constants.DirectionReturn
)

// directionSpec 每个方向的状态名、目标资产状态与审计动作
type directionSpec struct {
	unplanned      string
	planned        string
	inTransit      string
	terminal       string
	assetTarget    string
	auditStarted   string
	auditCompleted string
}

var directionSpecs = map[Direction]directionSpec{
	DirectionDelivery: {
		unplanned:      constants.DeliveryStatusUnassigned,
		planned:        constants.DeliveryStatusPlanned,
		inTransit:      constants.DeliveryStatusInTransit,
		terminal:       constants.DeliveryStatusDelivered,
		assetTarget:    constants.AssetStatusRented,
		auditStarted:   constants.AuditDeliveryStarted,
		auditCompleted: constants.AuditDeliveryCompleted,
	},
	DirectionReturn: {
		unplanned:      constants.ReturnStatusNone,
		planned:        constants.ReturnStatusPlanned,
		inTransit:      constants.ReturnStatusInTransit,
		terminal:       constants.ReturnStatusReturned,
		assetTarget:    constants.AssetStatusAvailable,
		auditStarted:   constants.AuditReturnStarted,
		auditCompleted: constants.AuditReturnCompleted,
	},
}

// ParseDirection 解析方向
func ParseDirection(raw string) (Direction, error) {
	d := Direction(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := directionSpecs[d]; !ok {
		return "", ErrInvalidDirection
	}
	return d, nil
}

func (d Direction) spec() directionSpec {
	return directionSpecs[d]
}

func (d Direction) String() string {
	return string(d)
}
