package common

// All units are in metric:
// - Speed is in m/s
// - Distance is in meters
// - Time is in seconds
// - Acceleration is in m/s^2

const Gravity = 9.80665

// GravityValidMin and GravityValidMax bound the acceptable magnitude of a
// gravity-vector reading. Readings outside this band mean the device is in
// free fall, saturated, or mid-shock, and any acceleration sample projected
// against them is untrustworthy.
const GravityValidMin = 0.7 * Gravity
const GravityValidMax = 1.3 * Gravity

const SpeedOfSound = 343.0

const SpeedOfWalkingSlow = 0.5 // or 1.8 km/h or 1.1 mph
const SpeedOfWalkingMean = 1.2 // or 4.3 km/h or 2.7 mph

const SpeedOfCityDriving = 13.9    // or 50 km/h
const SpeedOfHighwayDriving = 27.8 // or 100 km/h
const SpeedOfDrivingFreeway = 33.3 // or 120 km/h or 75 mph

// MetersPerDegreeLat is the meridional span of one degree of latitude,
// treated as constant over a survey area.
const MetersPerDegreeLat = 110540.0

// MetersPerDegreeLngEquator is the span of one degree of longitude at the
// equator; scale by cos(lat) for use anywhere else.
const MetersPerDegreeLngEquator = 111320.0

const KmhPerMps = 3.6
