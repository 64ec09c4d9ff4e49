package meaning

import "math"

// CatchAllPriority sorts after every other rule.
const CatchAllPriority = math.MaxInt

func catchAll() Rule {
	return Rule{
		Name:        "catch-all",
		Priority:    CatchAllPriority,
		Match:       Any(),
		Explanation: CatchAllExplanation,
	}
}

// Order matters: the more specific "no stopping" and "speed limit N" rules sit
// above the generic "stop" and "speed limit" ones.
func builtinRules() []Rule {
	return []Rule{
		{
			Name:        "no-stopping",
			Priority:    10,
			Match:       Words("no stopping"),
			Explanation: "No stopping: do not stop your vehicle here, not even briefly, except when forced to by traffic.",
		},
		{
			Name:        "stop",
			Priority:    20,
			Match:       Words("stop"),
			Explanation: "STOP: come to a complete stop at the stop line, give way to all traffic, and proceed only when the way is clear.",
		},
		{
			Name:        "yield",
			Priority:    30,
			Match:       MustPattern(`\b(yield|give way)\b`),
			Explanation: "Yield: slow down and give way to traffic on the main road; stop if necessary.",
		},
		{
			Name:        "red-light",
			Priority:    40,
			Match:       Words("red light"),
			Explanation: "Red signal: stop behind the line and wait until the light turns green.",
		},
		{
			Name:        "yellow-light",
			Priority:    41,
			Match:       MustPattern(`\b(yellow|amber) light\b`),
			Explanation: "Amber signal: stop unless you are so close that stopping would be unsafe.",
		},
		{
			Name:        "green-light",
			Priority:    42,
			Match:       Words("green light"),
			Explanation: "Green signal: proceed if the junction is clear, giving way to pedestrians still crossing.",
		},
		{
			Name:        "traffic-light",
			Priority:    43,
			Match:       MustPattern(`\btraffic (light|signal)s?\b`),
			Explanation: "Traffic signals ahead: be prepared to stop.",
		},
		{
			Name:        "minimum-speed",
			Priority:    50,
			Match:       MustPattern(`\bminimum speed\b.*\d+`),
			Explanation: "Minimum speed: keep to at least {number} km/h unless conditions make it unsafe.",
		},
		{
			Name:        "speed-limit-end",
			Priority:    51,
			Match:       MustPattern(`\bend of (the )?speed limit\b`),
			Explanation: "End of speed restriction: the general speed limit for this road applies again.",
		},
		{
			Name:        "speed-limit",
			Priority:    52,
			Match:       MustPattern(`\bspeed limit\b.*\d+`),
			Explanation: "Speed limit: do not exceed {number} km/h.",
		},
		{
			Name:        "speed-limit-unnumbered",
			Priority:    53,
			Match:       Contains("speed limit"),
			Explanation: "Speed limit: do not exceed the posted limit.",
		},
		{
			Name:        "no-entry",
			Priority:    60,
			Match:       MustPattern(`\b(no entry|do not enter)\b`),
			Explanation: "No entry: vehicles must not enter this road.",
		},
		{
			Name:        "one-way",
			Priority:    61,
			Match:       Words("one way"),
			Explanation: "One-way street: traffic flows only in the direction of the arrow.",
		},
		{
			Name:        "no-parking",
			Priority:    62,
			Match:       Words("no parking"),
			Explanation: "No parking: you may stop briefly to pick up or set down, but must not park.",
		},
		{
			Name:        "no-overtaking",
			Priority:    63,
			Match:       MustPattern(`\bno (overtaking|passing)\b`),
			Explanation: "No overtaking: do not pass other motor vehicles until the restriction ends.",
		},
		{
			Name:        "no-u-turn",
			Priority:    64,
			Match:       MustPattern(`\bno u ?turn\b`),
			Explanation: "No U-turn: do not turn to travel in the opposite direction.",
		},
		{
			Name:        "pedestrian-crossing",
			Priority:    70,
			Match:       MustPattern(`\b(pedestrian|zebra) crossing\b|\bcrosswalk\b`),
			Explanation: "Pedestrian crossing: slow down and give way to people on or waiting at the crossing.",
		},
		{
			Name:        "school-zone",
			Priority:    71,
			Match:       MustPattern(`\b(school|children)\b`),
			Explanation: "Children or school zone: reduce speed and watch for children near the road.",
		},
		{
			Name:        "roundabout",
			Priority:    80,
			Match:       Words("roundabout"),
			Explanation: "Roundabout ahead: give way to traffic already on the roundabout.",
		},
		{
			Name:        "keep-right",
			Priority:    81,
			Match:       Words("keep right"),
			Explanation: "Keep right: pass on the right-hand side of the obstruction or island.",
		},
		{
			Name:        "keep-left",
			Priority:    82,
			Match:       Words("keep left"),
			Explanation: "Keep left: pass on the left-hand side of the obstruction or island.",
		},
		{
			Name:        "railway-crossing",
			Priority:    90,
			Match:       MustPattern(`\b(railway|railroad|level) crossing\b`),
			Explanation: "Railway crossing: slow down, look both ways, and never stop on the tracks.",
		},
		{
			Name:        "road-works",
			Priority:    91,
			Match:       MustPattern(`\b(road ?works?|construction)\b`),
			Explanation: "Road works ahead: slow down and follow temporary signs and signals.",
		},
		{
			Name:        "slippery-road",
			Priority:    92,
			Match:       Words("slippery"),
			Explanation: "Slippery road: reduce speed and avoid harsh braking or steering.",
		},
		catchAll(),
	}
}

var builtin = MustTable(builtinRules())

// Builtin returns the built-in rule table.
func Builtin() *Table {
	return builtin
}
