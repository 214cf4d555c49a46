package main

import "time"

// FadeJob describes a single linear volume ramp on one channel.
//
// A fade always starts from the actual volume at the moment it was created,
// so replacing an in-flight fade never produces an audible jump: the new job
// simply ramps from wherever the old one left the channel.
//
// FadeJob is immutable once created; level() derives the volume for any
// instant from the job parameters, which keeps the reducer free of per-tick
// incremental state.
type FadeJob struct {
	From      float64
	To        float64
	Duration  time.Duration
	StartedAt time.Time
}

// newFade creates a ramp from `from` to `to` starting at `now`.
// A non-positive duration yields a fade that completes on the next tick.
func newFade(from, to float64, d time.Duration, now time.Time) *FadeJob {
	return &FadeJob{
		From:      clamp01(from),
		To:        clamp01(to),
		Duration:  d,
		StartedAt: now,
	}
}

// level returns the volume at time `now` and whether the fade has completed.
// Before StartedAt it returns From; at or after StartedAt+Duration it returns
// exactly To.
func (j *FadeJob) level(now time.Time) (float64, bool) {
	if j.Duration <= 0 {
		return j.To, true
	}

	elapsed := now.Sub(j.StartedAt)
	if elapsed <= 0 {
		return j.From, false
	}
	if elapsed >= j.Duration {
		return j.To, true
	}

	frac := float64(elapsed) / float64(j.Duration)
	return j.From + (j.To-j.From)*frac, false
}

// clamp01 clamps a linear gain into [0, 1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
