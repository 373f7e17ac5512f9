// Package dialog implements the conversation orchestrator: mode
// arbitration, complaint field collection, the confirmation gate, command
// dispatch, and retrieval-augmented answers.
package dialog

// Canned reply texts. Everything user-facing is Spanish; commands accept
// English aliases but answers stay in the deployment locale.
const (
	replyGreeting = "¡Hola! Soy Luna, la asistente de la municipalidad. Puedo tomar tu reclamo o responder consultas sobre trámites, horarios y servicios. ¿En qué te ayudo?"

	replyApologyFallback = "Perdón, tuve un inconveniente para procesar tu mensaje. ¿Podés intentarlo de nuevo en un momento?"

	replyComplaintIntro = "Entiendo, vamos a registrar tu reclamo."

	replyMultipleComplaints = "Veo que mencionás más de un problema. Para que cada reclamo quede bien registrado, contame de a uno por vez. ¿Con cuál empezamos?"

	replyComplaintCancelled = "Listo, descarté el reclamo en curso. Si querés empezar de nuevo o hacer una consulta, escribime."

	replyNoComplaintToCancel = "No hay ningún reclamo en curso para cancelar. Si querés iniciar uno, contame el problema."

	replyConfirmReprompt = "Necesito que respondas CONFIRMAR para registrar el reclamo o CANCELAR para descartarlo."

	replyNothingToConfirm = "No hay ningún reclamo listo para confirmar. Si querés iniciar uno, contame el problema."

	replySessionReset = "Empecemos de cero. ¿En qué te puedo ayudar?"

	replyNoComplaints = "No encontré reclamos registrados con tu número de teléfono."

	replyComplaintNotFound = "No encontré ese reclamo entre los tuyos. Verificá el número con /misreclamos."

	replyComplaintUsage = "Indicame el número de reclamo: /reclamo <id>"

	replyDuplicateCitizen = "No pude registrar el reclamo: el documento informado ya está asociado a otra persona. Revisá el número de documento y volvé a confirmar."

	replyPersistenceFailure = "No pude registrar el reclamo por un problema técnico. Tus datos siguen cargados: volvé a responder CONFIRMAR en unos minutos."

	replyMissingComplaintData = "No pude registrar el reclamo: faltan datos del problema (tipo, descripción o ubicación). Completalos y volvé a confirmar."

	replyMissingCitizenData = "No pude registrar el reclamo: faltan tus datos personales (nombre, documento o dirección). Completalos y volvé a confirmar."

	replyResumeReminder = "Sigamos con tu reclamo. "

	replyHelp = `Puedo ayudarte con reclamos y consultas municipales.

Comandos disponibles:
/ayuda - muestra este mensaje
/estado - estado del reclamo en curso
/misreclamos - tus reclamos registrados
/reclamo <id> - detalle de un reclamo
/confirmar - confirma el reclamo listo para registrar
/cancelar - descarta el reclamo en curso
/reiniciar - borra la conversación y empieza de cero

También podés escribirme directamente: contame un problema para iniciar un reclamo o haceme una pregunta sobre trámites y servicios.`

	replyNoComplaintInProgress = "No tenés ningún reclamo en curso. Contame el problema y lo registramos."

	replyUnknownCommand = "No conozco ese comando. Escribí /ayuda para ver los disponibles."
)

// Model-facing prompts.
const (
	personaSystemPrompt = `Sos Luna, la asistente virtual de la Municipalidad de San Miguel de Tucumán. Respondés en español rioplatense, con tono cordial y concreto. Ayudás a los vecinos con reclamos y consultas sobre servicios municipales. Si no sabés algo, decilo sin inventar datos.`

	ragSystemPrompt = `Sos Luna, la asistente virtual de la Municipalidad de San Miguel de Tucumán. Respondé la consulta del vecino usando ÚNICAMENTE la información de los documentos provistos.
Incluí TODOS los detalles relevantes que aparezcan en los documentos: horarios completos, direcciones exactas, requisitos y teléfonos. No resumas de más ni prometas detalles para después.
Si los documentos no cubren la consulta, decilo con claridad y sugerí comunicarse con la municipalidad. Respondé en español rioplatense, cordial y concreto.`

	truncationRetryInstruction = `La respuesta anterior quedó cortada. Respondé de nuevo la consulta con la información completa, sin cortes ni promesas de ampliar después.`
)
