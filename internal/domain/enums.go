package domain

import "strings"

// Category is the closed set of offense types.
type Category string

const (
	CategoryCorruption                 Category = "CORRUPTION"
	CategoryTraficInfluence            Category = "TRAFIC_INFLUENCE"
	CategoryPriseIllegaleInterets      Category = "PRISE_ILLEGALE_INTERETS"
	CategoryFavoritisme                Category = "FAVORITISME"
	CategoryDetournementFondsPublics   Category = "DETOURNEMENT_FONDS_PUBLICS"
	CategoryEmploiFictif               Category = "EMPLOI_FICTIF"
	CategoryFraudeFiscale              Category = "FRAUDE_FISCALE"
	CategoryBlanchiment                Category = "BLANCHIMENT"
	CategoryAbusBiensSociaux           Category = "ABUS_BIENS_SOCIAUX"
	CategoryAbusConfiance              Category = "ABUS_CONFIANCE"
	CategoryFinancementIllegalCampagne Category = "FINANCEMENT_ILLEGAL_CAMPAGNE"
	CategoryFinancementIllegalParti    Category = "FINANCEMENT_ILLEGAL_PARTI"
	CategoryFauxEtUsageDeFaux          Category = "FAUX_ET_USAGE_FAUX"
	CategoryRecel                      Category = "RECEL"
	CategoryHarcelementMoral           Category = "HARCELEMENT_MORAL"
	CategoryHarcelementSexuel          Category = "HARCELEMENT_SEXUEL"
	CategoryAgressionSexuelle          Category = "AGRESSION_SEXUELLE"
	CategoryViolence                   Category = "VIOLENCE"
	CategoryMenace                     Category = "MENACE"
	CategoryDiffamation                Category = "DIFFAMATION"
	CategoryInjure                     Category = "INJURE"
	CategoryIncitationHaine            Category = "INCITATION_HAINE"
	CategoryConflitInterets            Category = "CONFLIT_INTERETS"
	CategoryAutre                      Category = "AUTRE"
)

var categories = []Category{
	CategoryCorruption, CategoryTraficInfluence, CategoryPriseIllegaleInterets,
	CategoryFavoritisme, CategoryDetournementFondsPublics, CategoryEmploiFictif,
	CategoryFraudeFiscale, CategoryBlanchiment, CategoryAbusBiensSociaux,
	CategoryAbusConfiance, CategoryFinancementIllegalCampagne, CategoryFinancementIllegalParti,
	CategoryFauxEtUsageDeFaux, CategoryRecel, CategoryHarcelementMoral,
	CategoryHarcelementSexuel, CategoryAgressionSexuelle, CategoryViolence,
	CategoryMenace, CategoryDiffamation, CategoryInjure, CategoryIncitationHaine,
	CategoryConflitInterets, CategoryAutre,
}

// ParseCategory maps a raw value to a Category, falling back to AUTRE.
func ParseCategory(raw string) Category {
	value := Category(strings.ToUpper(strings.TrimSpace(raw)))
	for _, c := range categories {
		if c == value {
			return c
		}
	}
	return CategoryAutre
}

// Order matters: more specific phrases come before generic ones.
var categoryKeywords = []struct {
	keyword  string
	category Category
}{
	{"financement illégal de campagne", CategoryFinancementIllegalCampagne},
	{"comptes de campagne", CategoryFinancementIllegalCampagne},
	{"financement illégal", CategoryFinancementIllegalParti},
	{"trafic d'influence", CategoryTraficInfluence},
	{"prise illégale d'intérêts", CategoryPriseIllegaleInterets},
	{"favoritisme", CategoryFavoritisme},
	{"détournement de fonds publics", CategoryDetournementFondsPublics},
	{"emploi fictif", CategoryEmploiFictif},
	{"emplois fictifs", CategoryEmploiFictif},
	{"fraude fiscale", CategoryFraudeFiscale},
	{"blanchiment", CategoryBlanchiment},
	{"abus de biens sociaux", CategoryAbusBiensSociaux},
	{"abus de confiance", CategoryAbusConfiance},
	{"faux et usage de faux", CategoryFauxEtUsageDeFaux},
	{"recel", CategoryRecel},
	{"harcèlement moral", CategoryHarcelementMoral},
	{"harcèlement sexuel", CategoryHarcelementSexuel},
	{"agression sexuelle", CategoryAgressionSexuelle},
	{"viol", CategoryAgressionSexuelle},
	{"violence", CategoryViolence},
	{"menace", CategoryMenace},
	{"diffamation", CategoryDiffamation},
	{"injure", CategoryInjure},
	{"provocation à la haine", CategoryIncitationHaine},
	{"incitation à la haine", CategoryIncitationHaine},
	{"conflit d'intérêts", CategoryConflitInterets},
	{"corruption", CategoryCorruption},
}

// CategoryFromText guesses a category from a French offense label or summary.
func CategoryFromText(text string) Category {
	lowered := strings.ToLower(strings.ReplaceAll(text, "’", "'"))
	for _, kw := range categoryKeywords {
		if strings.Contains(lowered, kw.keyword) {
			return kw.category
		}
	}
	return CategoryAutre
}

// Status is the judicial-process stage of an affair.
type Status string

const (
	StatusEnquetePreliminaire          Status = "ENQUETE_PRELIMINAIRE"
	StatusInstruction                  Status = "INSTRUCTION"
	StatusMiseEnExamen                 Status = "MISE_EN_EXAMEN"
	StatusRenvoiTribunal               Status = "RENVOI_TRIBUNAL"
	StatusProcesEnCours                Status = "PROCES_EN_COURS"
	StatusCondamnationPremiereInstance Status = "CONDAMNATION_PREMIERE_INSTANCE"
	StatusAppelEnCours                 Status = "APPEL_EN_COURS"
	StatusCondamnationDefinitive       Status = "CONDAMNATION_DEFINITIVE"
	StatusRelaxe                       Status = "RELAXE"
	StatusAcquittement                 Status = "ACQUITTEMENT"
	StatusNonLieu                      Status = "NON_LIEU"
	StatusPrescription                 Status = "PRESCRIPTION"
	StatusClasseSansSuite              Status = "CLASSEMENT_SANS_SUITE"
)

// statuses is ordered by how far the process has gone.
var statuses = []Status{
	StatusEnquetePreliminaire, StatusInstruction, StatusMiseEnExamen,
	StatusRenvoiTribunal, StatusProcesEnCours, StatusCondamnationPremiereInstance,
	StatusAppelEnCours, StatusCondamnationDefinitive, StatusRelaxe,
	StatusAcquittement, StatusNonLieu, StatusPrescription, StatusClasseSansSuite,
}

// ParseStatus maps a raw value to a Status, falling back to ENQUETE_PRELIMINAIRE.
func ParseStatus(raw string) Status {
	value := Status(strings.ToUpper(strings.TrimSpace(raw)))
	for _, s := range statuses {
		if s == value {
			return s
		}
	}
	return StatusEnquetePreliminaire
}

// IsConviction reports whether the status records a conviction.
func (s Status) IsConviction() bool {
	return s == StatusCondamnationPremiereInstance || s == StatusCondamnationDefinitive
}

// Involvement is the politician's role in an affair.
type Involvement string

const (
	InvolvementDirect        Involvement = "DIRECT"
	InvolvementIndirect      Involvement = "INDIRECT"
	InvolvementVictim        Involvement = "VICTIM"
	InvolvementPlaintiff     Involvement = "PLAINTIFF"
	InvolvementMentionedOnly Involvement = "MENTIONED_ONLY"
)

// ParseInvolvement maps a raw value to an Involvement, falling back to MENTIONED_ONLY.
func ParseInvolvement(raw string) Involvement {
	switch v := Involvement(strings.ToUpper(strings.TrimSpace(raw))); v {
	case InvolvementDirect, InvolvementIndirect, InvolvementVictim, InvolvementPlaintiff, InvolvementMentionedOnly:
		return v
	default:
		return InvolvementMentionedOnly
	}
}

// PublicationStatus controls visibility of an affair.
type PublicationStatus string

const (
	PublicationPublished PublicationStatus = "PUBLISHED"
	PublicationDraft     PublicationStatus = "DRAFT"
)

// SourceType identifies where a citation comes from.
type SourceType string

const (
	SourceWikidata  SourceType = "WIKIDATA"
	SourceWikipedia SourceType = "WIKIPEDIA"
	SourcePresse    SourceType = "PRESSE"
	SourceJudilibre SourceType = "JUDILIBRE"
	SourceManuel    SourceType = "MANUEL"
)

// EventType classifies timeline entries.
type EventType string

const (
	EventFaits        EventType = "FAITS"
	EventMiseEnExamen EventType = "MISE_EN_EXAMEN"
	EventProces       EventType = "PROCES"
	EventCondamnation EventType = "CONDAMNATION"
	EventDecision     EventType = "DECISION"
	EventAppel        EventType = "APPEL"
)
