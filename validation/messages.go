package validation

import (
	"strconv"

	ut "github.com/go-playground/universal-translator"
)

const (
	keyRequired   = "required"
	keyEmail      = "email"
	keyMinLength  = "min_length"
	keyComplexity = "password_complexity"
	keyMismatch   = "password_mismatch"
	keyRange      = "range"
	keyInvalid    = "invalid"

	labelPrefix = "label."
)

// Notice keys for the success messages shown after a form completes.
const (
	NoticeWelcome    = "notice.welcome"
	NoticeRegistered = "notice.registered"
	NoticeLoggedOut  = "notice.logged_out"
	NoticeDemoFilled = "notice.demo_filled"
)

// Message keys for the fixed texts shown when a call fails.
const (
	MessageLoginFailed    = "message.login_failed"
	MessageRegisterFailed = "message.register_failed"
	MessageAccountExists  = "message.account_exists"
	MessageProfileFailed  = "message.profile_failed"
	MessageNotSignedIn    = "message.not_signed_in"
	MessageInFlight       = "message.in_flight"
	MessageTimeout        = "message.timeout"
	MessageNetwork        = "message.network"
	MessageSessionExpired = "message.session_expired"
	MessageCanceled       = "message.canceled"
	MessageBadResponse    = "message.bad_response"
	MessageFallback       = "message.fallback"
)

// Placeholders must appear in index order and at most once per message.
var catalogs = map[string]map[string]string{
	"en": {
		keyRequired:   "{0} is required",
		keyEmail:      "Invalid email address",
		keyMinLength:  "{0} must be at least {1} characters",
		keyComplexity: "{0} must contain an uppercase letter, a lowercase letter and a digit",
		keyMismatch:   "Passwords do not match",
		keyRange:      "{0} must be between {1} and {2}",
		keyInvalid:    "{0} is invalid",

		labelPrefix + "email":           "Email",
		labelPrefix + "password":        "Password",
		labelPrefix + "firstName":       "First name",
		labelPrefix + "lastName":        "Last name",
		labelPrefix + "confirmPassword": "Password confirmation",
		labelPrefix + "grade":           "Grade",
		labelPrefix + "form":            "Input",

		NoticeWelcome:    "Welcome, {0}!",
		NoticeRegistered: "Account created successfully!",
		NoticeLoggedOut:  "Logged out successfully",
		NoticeDemoFilled: "Demo account credentials filled in",

		MessageLoginFailed:    "Login failed",
		MessageRegisterFailed: "Registration failed",
		MessageAccountExists:  "An account with this email already exists.",
		MessageProfileFailed:  "Failed to get user data",
		MessageNotSignedIn:    "You are not signed in.",
		MessageInFlight:       "Please wait for the current request to finish.",
		MessageTimeout:        "The request timed out. Please try again.",
		MessageNetwork:        "Unable to reach the server. Please check your internet connection.",
		MessageSessionExpired: "Your session has expired. Please log in again.",
		MessageCanceled:       "The request was canceled.",
		MessageBadResponse:    "The server returned an unreadable response.",
		MessageFallback:       "An unexpected error occurred. Please try again.",
	},
	"fr": {
		keyRequired:   "{0} est obligatoire",
		keyEmail:      "Adresse e-mail invalide",
		keyMinLength:  "{0} doit contenir au moins {1} caractères",
		keyComplexity: "{0} doit contenir une majuscule, une minuscule et un chiffre",
		keyMismatch:   "Les mots de passe ne correspondent pas",
		keyRange:      "{0} doit être compris entre {1} et {2}",
		keyInvalid:    "{0} est invalide",

		labelPrefix + "email":           "E-mail",
		labelPrefix + "password":        "Mot de passe",
		labelPrefix + "firstName":       "Prénom",
		labelPrefix + "lastName":        "Nom",
		labelPrefix + "confirmPassword": "Confirmation du mot de passe",
		labelPrefix + "grade":           "Classe",
		labelPrefix + "form":            "Saisie",

		NoticeWelcome:    "Bienvenue, {0} !",
		NoticeRegistered: "Compte créé avec succès !",
		NoticeLoggedOut:  "Déconnexion réussie",
		NoticeDemoFilled: "Identifiants du compte de démonstration remplis",

		MessageLoginFailed:    "Échec de la connexion",
		MessageRegisterFailed: "Échec de l'inscription",
		MessageAccountExists:  "Un compte existe déjà avec cette adresse e-mail.",
		MessageProfileFailed:  "Impossible de récupérer les données de l'utilisateur",
		MessageNotSignedIn:    "Vous n'êtes pas connecté.",
		MessageInFlight:       "Veuillez patienter jusqu'à la fin de la requête en cours.",
		MessageTimeout:        "La requête a expiré. Veuillez réessayer.",
		MessageNetwork:        "Impossible de joindre le serveur. Vérifiez votre connexion internet.",
		MessageSessionExpired: "Votre session a expiré. Veuillez vous reconnecter.",
		MessageCanceled:       "La requête a été annulée.",
		MessageBadResponse:    "Le serveur a renvoyé une réponse illisible.",
		MessageFallback:       "Une erreur inattendue s'est produite. Veuillez réessayer.",
	},
	"ar": {
		keyRequired:   "{0} مطلوب",
		keyEmail:      "البريد الإلكتروني غير صحيح",
		keyMinLength:  "{0} يجب أن يكون {1} أحرف على الأقل",
		keyComplexity: "يجب أن تحتوي على حرف كبير وحرف صغير ورقم",
		keyMismatch:   "كلمات المرور غير متطابقة",
		keyRange:      "{0} يجب أن يكون بين {1} و {2}",
		keyInvalid:    "{0} غير صحيح",

		labelPrefix + "email":           "البريد الإلكتروني",
		labelPrefix + "password":        "كلمة المرور",
		labelPrefix + "firstName":       "الاسم الأول",
		labelPrefix + "lastName":        "الاسم الأخير",
		labelPrefix + "confirmPassword": "تأكيد كلمة المرور",
		labelPrefix + "grade":           "الصف الدراسي",
		labelPrefix + "form":            "المدخلات",

		NoticeWelcome:    "مرحباً {0}",
		NoticeRegistered: "تم إنشاء الحساب بنجاح!",
		NoticeLoggedOut:  "تم تسجيل الخروج بنجاح",
		NoticeDemoFilled: "تم ملء بيانات الحساب التجريبي",

		MessageLoginFailed:    "فشل تسجيل الدخول",
		MessageRegisterFailed: "فشل إنشاء الحساب",
		MessageAccountExists:  "البريد الإلكتروني مستخدم بالفعل",
		MessageProfileFailed:  "فشل جلب بيانات المستخدم",
		MessageNotSignedIn:    "لم تقم بتسجيل الدخول",
		MessageInFlight:       "يرجى الانتظار حتى انتهاء الطلب الحالي",
		MessageTimeout:        "انتهت مهلة الطلب. يرجى المحاولة مرة أخرى",
		MessageNetwork:        "تعذر الاتصال بالخادم. يرجى التحقق من اتصالك بالإنترنت",
		MessageSessionExpired: "انتهت صلاحية الجلسة. يرجى تسجيل الدخول مرة أخرى",
		MessageCanceled:       "تم إلغاء الطلب",
		MessageBadResponse:    "أعاد الخادم استجابة غير مقروءة",
		MessageFallback:       "حدث خطأ غير متوقع. يرجى المحاولة مرة أخرى",
	},
}

func render(trans ut.Translator, key string, params ...string) string {
	// ut indexes params positionally and panics on a short slice.
	for len(params) < 3 {
		params = append(params, "")
	}
	if s, err := trans.T(key, params...); err == nil && s != "" {
		return s
	}
	if fallback, found := universal.GetTranslator(DefaultLocale); found {
		if s, err := fallback.T(key, params...); err == nil && s != "" {
			return s
		}
	}
	return key
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
