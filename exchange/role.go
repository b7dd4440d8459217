package exchange

import (
	"strings"

	"github.com/rlch/lineage"
	"github.com/rlch/lineage/gedcom"
)

var pedigreeRoles = map[string]lineage.ParentalRole{
	gedcom.PediBirth:    lineage.RoleBiological,
	gedcom.PediSealing:  lineage.RoleBiological,
	gedcom.PediAdopted:  lineage.RoleAdoptive,
	gedcom.PediFoster:   lineage.RoleFoster,
	gedcom.PediStep:     lineage.RoleStep,
	gedcom.PediGuardian: lineage.RoleGuardian,
}

// pedigreeValues is the inverse of pedigreeRoles for export.
var pedigreeValues = map[lineage.ParentalRole]string{
	lineage.RoleAdoptive: gedcom.PediAdopted,
	lineage.RoleFoster:   gedcom.PediFoster,
	lineage.RoleStep:     gedcom.PediStep,
	lineage.RoleGuardian: gedcom.PediGuardian,
}

// childLink is one CHIL line of a FAM record together with the child's own
// INDI record.
type childLink struct {
	fam     *gedcom.Record
	chil    *gedcom.Record
	child   *gedcom.Record // nil when the pointer does not resolve to an INDI
	pointer string         // the FAM record's pointer
}

// resolveRole decides the parental role for a child link under policy.
// The family side is an ADOP under the CHIL line or the FAM record. The
// pedigree side is the child's FAMC PEDI for this family, or an ADOP event
// on the child naming this family.
func resolveRole(policy string, link childLink) lineage.ParentalRole {
	sources := []func(childLink) (lineage.ParentalRole, bool){familyRole, pedigreeRole}

	switch policy {
	case lineage.PolicyPedigreeFirst:
		sources = []func(childLink) (lineage.ParentalRole, bool){pedigreeRole, familyRole}
	case lineage.PolicyFamilyOnly:
		sources = sources[:1]
	case lineage.PolicyPedigreeOnly:
		sources = sources[1:]
	}

	for _, source := range sources {
		if role, ok := source(link); ok {
			return role
		}
	}

	return lineage.RoleBiological
}

func familyRole(link childLink) (lineage.ParentalRole, bool) {
	if link.chil.First(gedcom.TagAdop) != nil || link.fam.First(gedcom.TagAdop) != nil {
		return lineage.RoleAdoptive, true
	}

	return "", false
}

func pedigreeRole(link childLink) (lineage.ParentalRole, bool) {
	if link.child == nil || link.pointer == "" {
		return "", false
	}

	for _, famc := range link.child.All(gedcom.TagFamc) {
		if famc.Value != link.pointer {
			continue
		}

		pedi := strings.ToLower(strings.TrimSpace(famc.ValueOf(gedcom.TagPedi)))
		if role, ok := pedigreeRoles[pedi]; ok {
			return role, true
		}
	}

	for _, adop := range link.child.All(gedcom.TagAdop) {
		if adop.ValueOf(gedcom.TagFamc) == link.pointer {
			return lineage.RoleAdoptive, true
		}
	}

	return "", false
}
