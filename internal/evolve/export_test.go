package evolve

var PlannedSteps = plannedSteps
