package app

// Fixed detail and recommendation sets shown with every verdict. The backend
// message, when present, is displayed alongside these; it never replaces them.

var phishingDetails = []string{
	"Redirección sospechosa detectada",
	"Dominio no verificado",
	"Certificado SSL inválido o ausente",
	"Posible intento de suplantación de identidad",
}

var phishingRecommendations = []string{
	"NO abras el enlace",
	"Reporta al contacto que te envió esto",
	"Marca este link como spam",
	"Activa tu Autenticación en 2 pasos",
	"Actualiza tu antivirus",
}

var safeDetails = []string{
	"URL verificada correctamente",
	"Dominio legítimo y registrado",
	"Certificado SSL válido",
	"No se detectaron patrones de phishing",
}

var safeRecommendations = []string{
	"El sitio parece seguro",
	"Verifica siempre la URL completa antes de ingresar datos",
	"Busca el candado de seguridad en el navegador",
	"Mantén tu dispositivo actualizado",
}

// verdictTemplates returns copies so callers cannot mutate the shared sets.
func verdictTemplates(isPhishing bool) (details, recommendations []string) {
	if isPhishing {
		return append([]string(nil), phishingDetails...), append([]string(nil), phishingRecommendations...)
	}
	return append([]string(nil), safeDetails...), append([]string(nil), safeRecommendations...)
}
