package main

// Linux input event types and codes (from <linux/input.h>)
const (
	EV_SYN = 0x00
	EV_REL = 0x02

	// Relative axes emitted by the rotary-encoder driver and by USB knobs.
	REL_X     = 0x00
	REL_Y     = 0x01
	REL_DIAL  = 0x07
	REL_WHEEL = 0x08
)

// Controller defaults
const (
	defaultSampleIntervalMS  = 150  // wheel speed sample cadence (ms)
	defaultPollIntervalMS    = 10   // menu encoder/button poll cadence (ms)
	defaultDisplayIntervalMS = 250  // display refresh cadence (ms)
	defaultTestHoldMS        = 4000 // hold between the ramps of a test actuation (ms)
	defaultStatusMS          = 3000 // how long a save banner stays up (ms)

	defaultPWMFrequencyHz     = 10000
	defaultDutyResolutionBits = 8

	// Encoder counters saturate here.
	encoderLimit = 16000

	// Smoothing filter
	defaultFilterWindow    = 10
	defaultFilterThreshold = 3.0
	defaultFilterMin       = 0
	defaultFilterMax       = 255
	defaultFilterSustain   = 3 // consecutive outliers accepted as a level change
)
