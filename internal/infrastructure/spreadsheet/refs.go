package spreadsheet

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var refPattern = regexp.MustCompile(`^(.*?)(\d+)$`)

type parsedRef struct {
	prefix string
	num    int
	raw    string
}

// CollapseRefs joins designators, folding runs of three or more consecutive
// numbers with a shared prefix into a range ("R1-R3"). Designators without a
// trailing number are kept as they are, after the numbered ones.
func CollapseRefs(refs []string) string {
	var numbered []parsedRef
	var plain []string
	for _, r := range refs {
		m := refPattern.FindStringSubmatch(r)
		if m == nil {
			plain = append(plain, r)
			continue
		}
		n, err := strconv.Atoi(m[2])
		if err != nil {
			plain = append(plain, r)
			continue
		}
		numbered = append(numbered, parsedRef{prefix: m[1], num: n, raw: r})
	}
	sort.SliceStable(numbered, func(i, j int) bool {
		if numbered[i].prefix != numbered[j].prefix {
			return numbered[i].prefix < numbered[j].prefix
		}
		return numbered[i].num < numbered[j].num
	})

	var parts []string
	for i := 0; i < len(numbered); {
		j := i
		for j+1 < len(numbered) &&
			numbered[j+1].prefix == numbered[i].prefix &&
			numbered[j+1].num == numbered[j].num+1 {
			j++
		}
		if j-i >= 2 {
			parts = append(parts, fmt.Sprintf("%s-%s", numbered[i].raw, numbered[j].raw))
		} else {
			for k := i; k <= j; k++ {
				parts = append(parts, numbered[k].raw)
			}
		}
		i = j + 1
	}
	parts = append(parts, plain...)
	return strings.Join(parts, ",")
}
