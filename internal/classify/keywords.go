// Package classify provides message intent classification.
//
// This file consolidates every keyword and pattern table in one place:
// greetings, complaint keywords, cancellation phrases, informational-query
// markers, and the multi-complaint detection patterns.
package classify

import "regexp"

// Greetings are exact-match (after normalization) conversation openers
// that short-circuit retrieval.
var Greetings = []string{
	"hola",
	"buenas",
	"buen dia",
	"buen día",
	"buenos dias",
	"buenos días",
	"buenas tardes",
	"buenas noches",
	"hola!",
	"hola luna",
	"hello",
	"hi",
}

// ComplaintKeywords mark a message as likely starting or continuing a
// municipal complaint.
var ComplaintKeywords = []string{
	"reclamo",
	"reclamar",
	"queja",
	"quejarme",
	"denuncia",
	"denunciar",
	"roto",
	"rota",
	"no funciona",
	"no anda",
	"poste",
	"caido",
	"caído",
	"bache",
	"pozo",
	"basura",
	"escombros",
	"microbasural",
	"alumbrado",
	"luminaria",
	"luz quemada",
	"perdida de agua",
	"pérdida de agua",
	"caño roto",
	"cano roto",
	"cloaca",
	"zanja",
	"semaforo",
	"semáforo",
	"arbol caido",
	"árbol caído",
	"rama",
	"plaga",
	"ruidos molestos",
}

// cancellationPhrases are the cheap-case markers of an intent to abandon
// the complaint in progress.
var cancellationPhrases = []string{
	"cancelar",
	"cancela",
	"cancelalo",
	"no quiero seguir",
	"ya no quiero",
	"dejalo",
	"déjalo",
	"dejemoslo",
	"dejémoslo",
	"olvidalo",
	"olvídalo",
	"mejor no",
	"abandonar",
	"no sigas",
	"anula el reclamo",
	"borra el reclamo",
}

// infoQueryMarkers are the cheap-case markers of a question seeking
// facts (schedules, locations, requirements, procedures).
var infoQueryMarkers = []string{
	"?",
	"¿",
	"cual es",
	"cuál es",
	"como hago",
	"cómo hago",
	"como puedo",
	"cómo puedo",
	"donde",
	"dónde",
	"cuando",
	"cuándo",
	"horario",
	"horarios",
	"requisitos",
	"tramite",
	"trámite",
	"telefono",
	"teléfono",
	"direccion de",
	"dirección de",
	"atencion al",
	"atención al",
	"que necesito",
	"qué necesito",
}

// problemCategoryKeywords groups complaint nouns into distinct problem
// categories; two or more distinct categories in one message is a
// multi-complaint signal.
var problemCategoryKeywords = map[string][]string{
	"alumbrado":  {"poste", "alumbrado", "luminaria", "luz quemada", "farol"},
	"via":        {"bache", "pozo", "calzada", "vereda rota"},
	"residuos":   {"basura", "escombros", "microbasural", "residuos"},
	"agua":       {"perdida de agua", "pérdida de agua", "caño roto", "cano roto", "agua en la calle"},
	"cloacas":    {"cloaca", "zanja", "desborde"},
	"transito":   {"semaforo", "semáforo", "señal de transito", "señal de tránsito"},
	"arbolado":   {"arbol caido", "árbol caído", "rama", "poda"},
	"ambientales": {"ruidos molestos", "plaga", "roedores"},
}

// multiComplaintPatterns are the pattern classes used to detect several
// simultaneous complaints in a single message. Pattern-only: no LLM call.
var multiComplaintPatterns = []*regexp.Regexp{
	// Enumerations: "primero... segundo...", numbered/lettered lists.
	regexp.MustCompile(`(?is)\bprimero\b.*\bsegundo\b`),
	regexp.MustCompile(`(?im)^\s*1\s*[\.\)-].*\n\s*2\s*[\.\)-]`),
	// Additive connectors near complaint nouns.
	regexp.MustCompile(`(?is)\b(además|ademas|también|tambien)\b.{0,60}\b(reclamo|queja|problema|denuncia)\b`),
	regexp.MustCompile(`(?is)\b(otro|otra)\s+(reclamo|queja|problema|denuncia)\b`),
	// Two location phrases joined by "y también"/"y además".
	regexp.MustCompile(`(?is)\ben\s+(la\s+|av\.?\s*|avenida\s+|calle\s+)?[^,\.]{3,40}\s+y\s+(también|tambien|además|ademas)\s+en\b`),
	// Explicit contrast framing.
	regexp.MustCompile(`(?is)\bpor\s+un\s+lado\b.*\bpor\s+(el\s+)?otro(\s+lado)?\b`),
	// Explicit plural complaint phrasing.
	regexp.MustCompile(`(?is)\b(varios|varias|multiples|múltiples|muchos|muchas)\s+(problemas|reclamos|quejas|denuncias)\b`),
}
