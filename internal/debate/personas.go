package debate

import "math/rand"

// Expert personas assigned once per discussion. They are interpolated
// into prompt text only and have no effect on control flow.
var personaCatalog = []string{
	"pragmatic senior engineer who values simple, maintainable solutions",
	"systems architect focused on scalability and long-term structure",
	"security specialist who probes for failure modes and abuse cases",
	"performance engineer who weighs costs and bottlenecks",
	"API design purist who cares about clear contracts and ergonomics",
	"test-driven developer who reasons from verifiable behavior",
}

// assignPersonas maps each participant label to a persona drawn without
// replacement from the catalog.
func assignPersonas(labels []string, rng *rand.Rand) map[string]string {
	idx := rng.Perm(len(personaCatalog))
	out := make(map[string]string, len(labels))
	for i, label := range labels {
		out[label] = personaCatalog[idx[i%len(personaCatalog)]]
	}
	return out
}
