package policy

import (
	"fmt"
	"strings"

	postentity "github.com/vadim/neo-content/internal/domain/post/entity"
)

// clusterAngles expand a pillar topic into supporting articles when the caller
// supplies fewer subtopics than the cluster size
var clusterAngles = []string{
	"How to choose %s",
	"Common %s mistakes to avoid",
	"%s care and maintenance tips",
	"Best %s for every budget",
	"%s trends to watch this year",
	"%s compared: which option is right for you",
	"Frequently asked questions about %s",
	"Getting the most out of %s",
	"A beginner's checklist for %s",
	"%s for gifts and special occasions",
	"Sustainable choices in %s",
	"Expert tips on %s",
}

// MaxClusterSize bounds the number of topics one cluster may plan
const MaxClusterSize = 1 + 12

// PlanCluster returns the ordered topics of a cluster: the root first, then the
// caller's subtopics, then editorial angles on the root until size is reached.
// Topics that repeat an earlier one, ignoring case and surrounding space, are dropped.
func PlanCluster(root string, subtopics []string, size int) []string {
	root = strings.TrimSpace(root)
	if size <= 0 || size > MaxClusterSize {
		size = MaxClusterSize
	}

	topics := []string{root}
	seen := map[string]bool{postentity.TitleKey(root): true}
	add := func(t string) {
		t = strings.TrimSpace(t)
		key := postentity.TitleKey(t)
		if t == "" || seen[key] || len(topics) >= size {
			return
		}
		seen[key] = true
		topics = append(topics, t)
	}

	for _, s := range subtopics {
		add(s)
	}
	for _, angle := range clusterAngles {
		add(fmt.Sprintf(angle, root))
	}
	return topics
}
