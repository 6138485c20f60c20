package utils

// Minimal server-side i18n for fixed keys: validation and auth messages only.

var translations = map[string]map[string]string{
	"en": {
		"health.ok":                 "ok",
		"register.name":             "Enter your name.",
		"register.surname":          "Enter your surname.",
		"register.national_id":      "Invalid national ID. Use 10 valid digits.",
		"register.phone":            "Invalid phone. Format: 09xxxxxxxx or +5939xxxxxxxx.",
		"register.program":          "Enter the program.",
		"register.graduation_year":  "Invalid graduation year.",
		"register.birth_date":       "Enter your birth date.",
		"register.min_age":          "Minimum age is 15 years.",
		"register.email":            "Invalid institutional email (must end in %s).",
		"register.email_taken":      "An account with this email already exists.",
		"register.national_id_used": "National ID already registered.",
		"register.password":         "Weak password. At least 8 characters, one uppercase, one lowercase and one digit.",
		"register.confirm":          "Passwords do not match.",
		"register.role":             "Select a valid role.",
		"register.linkedin":         "Invalid LinkedIn URL.",
		"login.email":               "Invalid email.",
		"login.password":            "Enter the password.",
		"login.role":                "Select a role.",
		"login.not_found":           "No account was found with that email.",
		"login.wrong_password":      "Incorrect password.",
		"login.role_mismatch":       "Incorrect role.",
		"login.not_approved":        "Account under review or rejected. Wait for coordinator approval.",
		"login.rate_limited":        "Too many login attempts. Try again later.",
		"session.required":          "You must log in.",
		"events.tab_in_use":         "This tab id is already connected.",
		"session.coordinator":       "You must log in as Coordinator.",
		"survey.title":              "Title required.",
		"survey.questions":          "Add at least one question.",
		"survey.not_found":          "Survey not found.",
		"user.not_found":            "User not found.",
		"training.title":            "Title required.",
		"training.coordinator_only": "Only coordinators can create trainings.",
		"training.confirm":          "Deletion must be confirmed.",
		"training.not_found":        "Training not found.",
		"employment.status":         "Employment status must be yes, no or empty.",
		"export.empty":              "There is nothing to export.",
		"export.format":             "Unknown export format.",
		"stats.invalid":             "Statistics must be non-negative numbers and percentage at most 100.",
	},
	"es": {
		"health.ok":                 "ok",
		"register.name":             "Ingrese su nombre.",
		"register.surname":          "Ingrese su apellido.",
		"register.national_id":      "Cédula inválida. Use 10 dígitos válidos.",
		"register.phone":            "Teléfono inválido. Formato: 09xxxxxxxx o +5939xxxxxxxx.",
		"register.program":          "Ingrese la carrera.",
		"register.graduation_year":  "Año de graduación inválido.",
		"register.birth_date":       "Ingrese la fecha de nacimiento.",
		"register.min_age":          "Edad mínima 15 años.",
		"register.email":            "Correo institucional inválido (debe terminar en %s).",
		"register.email_taken":      "Ya existe una cuenta con este correo.",
		"register.national_id_used": "Cédula ya registrada.",
		"register.password":         "Contraseña débil. Mín 8 caracteres, una mayúscula, una minúscula y un número.",
		"register.confirm":          "Las contraseñas no coinciden.",
		"register.role":             "Seleccione un rol válido.",
		"register.linkedin":         "URL de LinkedIn inválida.",
		"login.email":               "Correo no válido.",
		"login.password":            "Ingrese la contraseña.",
		"login.role":                "Seleccione un rol.",
		"login.not_found":           "No se encontró una cuenta con ese correo.",
		"login.wrong_password":      "Contraseña incorrecta.",
		"login.role_mismatch":       "Rol incorrecto.",
		"login.not_approved":        "Cuenta en revisión o rechazada. Espera aprobación del Coordinador.",
		"login.rate_limited":        "Demasiados intentos. Intente más tarde.",
		"session.required":          "Debe iniciar sesión.",
		"events.tab_in_use":         "Esta pestaña ya está conectada.",
		"session.coordinator":       "Debe iniciar sesión como Coordinador.",
		"survey.title":              "Título requerido.",
		"survey.questions":          "Añada al menos una pregunta.",
		"survey.not_found":          "Encuesta no encontrada.",
		"user.not_found":            "Usuario no encontrado.",
		"training.title":            "Título requerido.",
		"training.coordinator_only": "Sólo los coordinadores pueden crear capacitaciones.",
		"training.confirm":          "Debe confirmar la eliminación.",
		"training.not_found":        "Capacitación no encontrada.",
		"employment.status":         "La situación laboral debe ser yes, no o vacía.",
		"export.empty":              "No hay datos para exportar.",
		"export.format":             "Formato de exportación desconocido.",
		"stats.invalid":             "Las estadísticas deben ser números no negativos y el porcentaje como máximo 100.",
	},
}

// T returns the translated string for key in locale; falls back to English.
func T(locale, key string) string {
	if m, ok := translations[locale]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	if m, ok := translations["en"]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	return key
}

// Locales lists the supported locales, default first.
func Locales() []string { return []string{"en", "es"} }
