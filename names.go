package lineage

// Store backend names.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreBadger = "badger"
	StoreNeo4j  = "neo4j"
)

// Parental role policy names, used by the importer to decide whether a
// GEDCOM child link is biological or adoptive.
const (
	PolicyFamilyFirst   = "family-first"
	PolicyPedigreeFirst = "pedigree-first"
	PolicyFamilyOnly    = "family-only"
	PolicyPedigreeOnly  = "pedigree-only"
)

// KnownPolicies lists the accepted role policy names.
var KnownPolicies = []string{PolicyFamilyFirst, PolicyPedigreeFirst, PolicyFamilyOnly, PolicyPedigreeOnly}

// DefaultScope is used when a caller gives no scope.
const DefaultScope = "default"
