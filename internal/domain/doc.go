// Package domain detects heat-wave events in daily station temperature series
// and summarizes them with standard annual metrics.
//
// # Data Source
//
// Station series are daily minimum (tmin) or maximum (tmax) temperatures,
// one value per calendar date. Missing values are carried as NaN. Series are
// reindexed to strict daily frequency before use, so absent dates become
// missing values rather than silently shortening runs.
//
// # Pipeline
//
//	series ──► reference period ──► calendar windows ──► thresholds
//	   │                                                     │
//	   └──────────────────────► annotate ◄───────────────────┘
//	                               │
//	                            segment ──► events ──► annual metrics
//
// Calendar windows: every one of the 366 calendar days (02-29 included) gets
// the month-day labels within ±floor(window/2) days, wrapping across the new
// year. A 5-day window around 01-01 is {12-30, 12-31, 01-01, 01-02, 01-03}.
//
// Thresholds: percentile indices pool every reference-period value whose
// calendar day falls inside the day's window, across all reference years, and
// take the percentile with linear interpolation. Fixed indices use one
// constant. With a season, only days in the season padded by one month on
// each side get a threshold; (6, 7, 8) computes thresholds for May-September.
//
// Segmentation: a day exceeds when its value is strictly above its threshold.
// Days with a missing value or missing threshold are undefined: they break a
// run but never count as exceedance. Runs shorter than the index's minimum
// duration are discarded.
//
// # Annual Metrics
//
// Following Perkins & Alexander (2013):
//
//	hwn   number of heat waves
//	hwf   heat-wave days (sum of durations)
//	hwd   longest heat wave
//	hwdm  mean heat-wave duration
//	hwma  mean of per-event maxima
//	hwm   hwma minus the reference-period seasonal mean
//	hwaa  maximum of the hottest heat wave (highest event mean)
//	hwa   hwaa minus the reference-period seasonal mean
//
// Completeness policy: a year without heat waves is reported with hwn=0 only
// when fewer than ceil(pct% of the season length) in-season days are missing.
// Incomplete years without heat waves are left out, so a missing row means
// "insufficient data" and a zero row means "valid year, no heat wave".
//
// # Predefined Indices
//
// [LookupIndex] knows ctn90pct, ctn95pct, ctx90pct, ctx95pct, hot_days,
// hot_events_daytime, hot_events_nighttime, summer_days, tn90p,
// tropical_nights, tx90p, wsdi and test_index.
package domain
