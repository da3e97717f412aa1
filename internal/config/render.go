// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"
	"strings"
)

// GenerateJSON renders the effective project configuration as a project file.
func GenerateJSON(p *Project) string {
	var sb strings.Builder

	sb.WriteString("{\n")
	fmt.Fprintf(&sb, "    \"name\": %q,\n", p.Name)
	fmt.Fprintf(&sb, "    \"cpp\": {\n        \"standard\": %d\n    },\n", p.Cpp.Standard)
	fmt.Fprintf(&sb, "    \"modules_dir\": %q,\n", p.ModulesDir)
	if p.EnableLTOGlobally != nil {
		fmt.Fprintf(&sb, "    \"cloned_repos_dir\": %q,\n", p.ClonedReposDir)
		fmt.Fprintf(&sb, "    \"enable_lto_globally\": %v\n", *p.EnableLTOGlobally)
	} else {
		fmt.Fprintf(&sb, "    \"cloned_repos_dir\": %q\n", p.ClonedReposDir)
	}
	sb.WriteString("}\n")

	return sb.String()
}
