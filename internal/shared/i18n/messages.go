package i18n

import "golang.org/x/text/language"

// messages holds every catalog entry. Error kinds are keyed by their
// string value, field details by "detail.<text>".
var messages = map[language.Tag]map[string]string{
	language.English: {
		successKey:                   "Success",
		"INVALID_INPUT":              "Some of the submitted data is invalid.",
		"DUPLICATE_PHONE":            "This phone number is already registered.",
		"DUPLICATE_EMAIL":            "This email is already registered.",
		"INVALID_CODE":               "The verification code is incorrect.",
		"EXPIRED_CODE":               "The verification code has expired. Request a new one.",
		"TOO_MANY_ATTEMPTS":          "Too many wrong attempts. Request a new code.",
		"RESEND_TOO_SOON":            "Please wait before requesting another code.",
		"DELIVERY_FAILED":            "We could not send the verification code. Try again later.",
		"PHONE_NOT_REGISTERED":       "No account is registered with this phone number.",
		"PHONE_ALREADY_REGISTERED":   "This phone number is already registered.",
		"NO_PENDING_REGISTRATION":    "There is no pending registration for this phone number.",
		"OTP_NOT_VERIFIED":           "Verify your phone number first.",
		"STEP_NOT_ALLOWED":           "Complete the previous steps first.",
		"REGISTRATION_INCOMPLETE":    "Some registration steps are still missing.",
		"PLAN_NOT_FOUND":             "The subscription plan was not found.",
		"PLAN_INACTIVE":              "The subscription plan is no longer available.",
		"SUBSCRIPTION_NOT_CHOSEN":    "Choose a subscription plan first.",
		"ALREADY_PAID":               "The subscription is already paid.",
		"PAYMENT_DECLINED":           "The payment was declined.",
		"ACCOUNT_NOT_FOUND":          "Account not found.",
		"ACCOUNT_INACTIVE":           "This account is not active.",
		"SESSION_NOT_FOUND":          "The registration session was not found or has expired.",
		"OWNERSHIP_MISMATCH":         "You are not allowed to modify this account.",
		"INTERNAL":                   "Something went wrong. Please try again.",
		"detail.required":            "required",
		"detail.invalid":             "invalid",
		"detail.expired":             "expired",
		"detail.invalid format":      "invalid format",
		"detail.invalid length":      "invalid length",
		"detail.already registered":  "already registered",
		"detail.not registered":      "not registered",
		"detail.already verified":    "already verified",
		"detail.not found":           "not found",
		"detail.inactive":            "inactive",
		"detail.request a new code":  "request a new code",
		"detail.expected YYYY-MM-DD": "expected YYYY-MM-DD",
	},
	language.Arabic: {
		successKey:                   "تمت العملية بنجاح",
		"INVALID_INPUT":              "بعض البيانات المدخلة غير صحيحة.",
		"DUPLICATE_PHONE":            "رقم الجوال مسجل مسبقاً.",
		"DUPLICATE_EMAIL":            "البريد الإلكتروني مسجل مسبقاً.",
		"INVALID_CODE":               "رمز التحقق غير صحيح.",
		"EXPIRED_CODE":               "انتهت صلاحية رمز التحقق. اطلب رمزاً جديداً.",
		"TOO_MANY_ATTEMPTS":          "محاولات خاطئة كثيرة. اطلب رمزاً جديداً.",
		"RESEND_TOO_SOON":            "يرجى الانتظار قبل طلب رمز آخر.",
		"DELIVERY_FAILED":            "تعذر إرسال رمز التحقق. حاول لاحقاً.",
		"PHONE_NOT_REGISTERED":       "لا يوجد حساب مسجل بهذا الرقم.",
		"PHONE_ALREADY_REGISTERED":   "رقم الجوال مسجل مسبقاً.",
		"NO_PENDING_REGISTRATION":    "لا يوجد تسجيل معلق لهذا الرقم.",
		"OTP_NOT_VERIFIED":           "يرجى التحقق من رقم الجوال أولاً.",
		"STEP_NOT_ALLOWED":           "يرجى إكمال الخطوات السابقة أولاً.",
		"REGISTRATION_INCOMPLETE":    "بعض خطوات التسجيل لم تكتمل بعد.",
		"PLAN_NOT_FOUND":             "خطة الاشتراك غير موجودة.",
		"PLAN_INACTIVE":              "خطة الاشتراك غير متاحة.",
		"SUBSCRIPTION_NOT_CHOSEN":    "يرجى اختيار خطة اشتراك أولاً.",
		"ALREADY_PAID":               "تم دفع الاشتراك مسبقاً.",
		"PAYMENT_DECLINED":           "تم رفض عملية الدفع.",
		"ACCOUNT_NOT_FOUND":          "الحساب غير موجود.",
		"ACCOUNT_INACTIVE":           "هذا الحساب غير نشط.",
		"SESSION_NOT_FOUND":          "جلسة التسجيل غير موجودة أو منتهية.",
		"OWNERSHIP_MISMATCH":         "غير مسموح لك بتعديل هذا الحساب.",
		"INTERNAL":                   "حدث خطأ ما. يرجى المحاولة مرة أخرى.",
		"detail.required":            "مطلوب",
		"detail.invalid":             "غير صحيح",
		"detail.expired":             "منتهي الصلاحية",
		"detail.invalid format":      "صيغة غير صحيحة",
		"detail.invalid length":      "طول غير صحيح",
		"detail.already registered":  "مسجل مسبقاً",
		"detail.not registered":      "غير مسجل",
		"detail.already verified":    "تم التحقق مسبقاً",
		"detail.not found":           "غير موجود",
		"detail.inactive":            "غير نشط",
		"detail.request a new code":  "اطلب رمزاً جديداً",
		"detail.expected YYYY-MM-DD": "الصيغة المطلوبة YYYY-MM-DD",
	},
}
