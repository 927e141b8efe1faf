package service

import (
	"math"

	"github.com/renthportal/renthportal-sub001/internal/models"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// GPSFix 司机端定位（尽力而为，缺失不阻塞完工）
type GPSFix struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

var worldBound = orb.Bound{Min: orb.Point{-180, -90}, Max: orb.Point{180, 90}}

// Point 转为 orb 点（经度在前）
func (f GPSFix) Point() orb.Point {
	return orb.Point{f.Lng, f.Lat}
}

// Valid 坐标在合法范围内且不是 0,0
func (f GPSFix) Valid() bool {
	if math.IsNaN(f.Lat) || math.IsNaN(f.Lng) {
		return false
	}
	if f.Lat == 0 && f.Lng == 0 {
		return false
	}
	return worldBound.Contains(f.Point())
}

// siteDistance 定位与项目工地的距离（米），工地无坐标时返回 nil
func siteDistance(fix GPSFix, rental *models.Rental) *float64 {
	if rental == nil || rental.SiteLat == nil || rental.SiteLng == nil {
		return nil
	}
	site := GPSFix{Lat: *rental.SiteLat, Lng: *rental.SiteLng}
	if !site.Valid() {
		return nil
	}
	d := math.Round(geo.Distance(fix.Point(), site.Point()))
	return &d
}
