package domain

// Schema is the ordered canonical column list for one source. An empty
// schema means the source has no fixed contract and files keep whatever
// header they carry.
type Schema []string

// Empty reports whether the schema defines no columns.
func (s Schema) Empty() bool {
	return len(s) == 0
}

// headerToken is the column name Reconcile looks for when deciding whether
// the first line of a file is a header row.
func (s Schema) headerToken() string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}

// AXASchema is the official AXA México column contract for vehicle
// incident exports. Exports before 2020 carry these names in a header
// row; later exports are headerless and map to this list by position.
var AXASchema = Schema{
	"SINIESTRO", "LATITUD", "LONGITUD", "CODIGO POSTAL", "CALLE", "COLONIA",
	"CAUSA SINIESTRO", "TIPO VEHICULO", "COLOR", "MODELO", "NIVEL DAÑO VEHICULO",
	"PUNTO DE IMPACTO", "AÑO", "MES", "DÍA NUMERO", "DIA", "HORA", "ESTADO", "CIUDAD",
	"LESIONADOS", "RELACION LESIONADOS", "EDAD LESIONADO", "GENERO LESIONADO",
	"NIVEL LESIONADO", "HOSPITALIZADO", "FALLECIDO", "AMBULANCIA", "ARBOL",
	"PIEDRA", "DORMIDO", "GRUA", "OBRA CIVIL", "PAVIMENTO MOJADO", "EXPLOSION LLANTA",
	"VOLCADURA", "PERDIDA TOTAL", "CONDUCTOR DISTRAIDO", "FUGA", "ALCOHOL",
	"MOTOCICLETA", "BICICLETA", "SEGURO", "TAXI", "ANIMAL",
}

// AXABinaryColumns are the SI/NO incident-factor flags in the AXA exports.
var AXABinaryColumns = []string{
	"HOSPITALIZADO", "FALLECIDO", "AMBULANCIA", "ARBOL", "PIEDRA",
	"DORMIDO", "GRUA", "OBRA CIVIL", "PAVIMENTO MOJADO",
	"EXPLOSION LLANTA", "VOLCADURA", "PERDIDA TOTAL",
	"CONDUCTOR DISTRAIDO", "FUGA", "ALCOHOL", "MOTOCICLETA",
	"BICICLETA", "SEGURO", "TAXI", "ANIMAL",
}

// AXACleanSpec is the cleaning contract for the incident table:
// coordinates and date parts become numeric, the factor flags become
// booleans, and rows missing either coordinate are dropped.
var AXACleanSpec = CleanSpec{
	NumericColumns:  []string{"LATITUD", "LONGITUD", "AÑO", "MES"},
	BinaryColumns:   AXABinaryColumns,
	RequiredColumns: []string{"LATITUD", "LONGITUD"},
}

// DatePartsCleanSpec covers the census and weather tables, which share
// numeric date-component columns and have no flags or required columns.
var DatePartsCleanSpec = CleanSpec{
	NumericColumns: []string{"AÑO", "MES", "DIA", "HORA"},
}
