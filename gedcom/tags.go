package gedcom

// GEDCOM tags read or written by this package.
const (
	TagHead = "HEAD"
	TagTrlr = "TRLR"
	TagSour = "SOUR"
	TagGedc = "GEDC"
	TagVers = "VERS"
	TagForm = "FORM"
	TagChar = "CHAR"
	TagSubm = "SUBM"
	TagName = "NAME"

	TagIndi  = "INDI"
	TagGivn  = "GIVN"
	TagSurn  = "SURN"
	TagNick  = "NICK"
	TagSex   = "SEX"
	TagBirt  = "BIRT"
	TagDeat  = "DEAT"
	TagDate  = "DATE"
	TagPlac  = "PLAC"
	TagCaus  = "CAUS"
	TagNote  = "NOTE"
	TagRefn  = "REFN"
	TagType  = "TYPE"
	TagEmail = "EMAIL"

	TagFam  = "FAM"
	TagFamc = "FAMC"
	TagFams = "FAMS"
	TagHusb = "HUSB"
	TagWife = "WIFE"
	TagChil = "CHIL"
	TagMarr = "MARR"
	TagDiv  = "DIV"
	TagAdop = "ADOP"
	TagPedi = "PEDI"

	TagCont = "CONT"
	TagConc = "CONC"
)

// Pedigree linkage values carried by PEDI.
const (
	PediBirth   = "birth"
	PediAdopted = "adopted"
	PediFoster  = "foster"
	PediStep    = "step"
	PediSealing = "sealing"

	// PediGuardian is not standard GEDCOM. It is written so guardianship
	// survives a round trip.
	PediGuardian = "guardian"
)

// MIMEType is the media type of a GEDCOM document.
const MIMEType = "application/x-gedcom"

// Version is the GEDCOM version written in headers.
const Version = "5.5.1"
