package itinerary

// Fabricated-URL policy. Models occasionally invent event-page URLs by padding
// a plausible path with digit runs ("/event/123456", "/e/1111111"). Such URLs
// violate the verbatim-copy rule and must never reach the caller.

const fabricatedRunLength = 5

// FabricatedURL reports whether a URL contains a digit run that looks invented
// rather than copied: five or more digits that are all identical or strictly
// incrementing/decrementing by one.
func FabricatedURL(url string) bool {
	runStart := -1
	for i := 0; i <= len(url); i++ {
		digit := i < len(url) && url[i] >= '0' && url[i] <= '9'
		if digit && runStart < 0 {
			runStart = i
		}
		if !digit && runStart >= 0 {
			if suspiciousDigitRun(url[runStart:i]) {
				return true
			}
			runStart = -1
		}
	}
	return false
}

func suspiciousDigitRun(run string) bool {
	if len(run) < fabricatedRunLength {
		return false
	}
	repeated, ascending, descending := true, true, true
	for i := 1; i < len(run); i++ {
		if run[i] != run[i-1] {
			repeated = false
		}
		if run[i] != run[i-1]+1 {
			ascending = false
		}
		if run[i] != run[i-1]-1 {
			descending = false
		}
	}
	return repeated || ascending || descending
}

// EnforceSourcePolicy nulls out any event source URL that was not copied
// verbatim from a scouted link or that matches the fabricated-URL signature.
// allowed is the set of URLs presented to the model for the batch.
func EnforceSourcePolicy(events []Event, allowed map[string]struct{}) {
	for i := range events {
		url := events[i].Source.URL
		if url == nil {
			continue
		}
		if _, ok := allowed[*url]; !ok || FabricatedURL(*url) {
			events[i].Source.URL = nil
		}
	}
}
