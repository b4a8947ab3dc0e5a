package hermes

const (
	SubjectJobNoMatch    = "crew.job.no_match"
	SubjectRosterUpdated = "crew.roster.updated"

	StreamName     = "CREWMATCH_EVENTS"
	StreamSubjects = "crew.>"
	StreamMaxAge   = "720h" // 30 days
)

func SubjectJobMatched(jobID string) string { return "crew.job." + jobID + ".matched" }
