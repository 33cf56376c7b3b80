package canonical

// ApplicantPayload is the normalized applicant record produced by the
// external OCR/MRZ pipeline. It is decoded once at the boundary and treated
// as read-only input; the JSON field names mirror the normalizer's output.
type ApplicantPayload struct {
	Identity   Identity   `json:"identificacion"`
	Address    Address    `json:"domicilio"`
	Declarant  Declarant  `json:"declarante"`
	Payment    Payment    `json:"ingreso"`
	Assessment Assessment `json:"autoliquidacion"`
	Extra      Extra      `json:"extra"`
}

// Identity carries the document-holder identification fields.
type Identity struct {
	NIFNIE          string `json:"nif_nie"`
	Pasaporte       string `json:"pasaporte"`
	NombreApellidos string `json:"nombre_apellidos"`
	PrimerApellido  string `json:"primer_apellido"`
	SegundoApellido string `json:"segundo_apellido"`
	Nombre          string `json:"nombre"`
}

// Address is the declared Spanish address, possibly only partially
// structured: free-text street values are decomposed by BuildValueMap.
type Address struct {
	TipoVia   string `json:"tipo_via"`
	NombreVia string `json:"nombre_via"`
	Numero    string `json:"numero"`
	Escalera  string `json:"escalera"`
	Piso      string `json:"piso"`
	Puerta    string `json:"puerta"`
	Telefono  string `json:"telefono"`
	Municipio string `json:"municipio"`
	Provincia string `json:"provincia"`
	CP        string `json:"cp"`
}

// Declarant carries the declaration place and date.
type Declarant struct {
	Fecha     string `json:"fecha"`
	Localidad string `json:"localidad"`
}

// Payment carries the chosen payment method for fee forms.
type Payment struct {
	FormaPago string `json:"forma_pago"`
	IBAN      string `json:"iban"`
}

// Assessment carries the self-assessed fee amount. The first non-empty of
// ImporteEuros, Importe and ImporteComplementaria is used.
type Assessment struct {
	ImporteEuros          string `json:"importe_euros"`
	Importe               string `json:"importe"`
	ImporteComplementaria string `json:"importe_complementaria"`
}

// Extra groups the personal and family/representative fields that only some
// forms ask for.
type Extra struct {
	Sexo                      string `json:"sexo"`
	Email                     string `json:"email"`
	FechaNacimiento           string `json:"fecha_nacimiento"`
	Nacionalidad              string `json:"nacionalidad"`
	PaisNacimiento            string `json:"pais_nacimiento"`
	EstadoCivil               string `json:"estado_civil"`
	LugarNacimiento           string `json:"lugar_nacimiento"`
	NombrePadre               string `json:"nombre_padre"`
	NombreMadre               string `json:"nombre_madre"`
	RepresentanteLegal        string `json:"representante_legal"`
	RepresentanteDocumento    string `json:"representante_documento"`
	TituloRepresentante       string `json:"titulo_representante"`
	HijosEscolarizacionEspana string `json:"hijos_escolarizacion_espana"`
}
