package telegram

// Тексты ответов бота.
const (
	textWelcome = "👋 Привіт! Надішли посилання на оголошення OLX або Otodom — я зберу зображення.\n" +
		"Використовуй /crop, щоб налаштувати обрізання."
	textHelp = "🤖 Бот для збору зображень з OLX та Otodom.\n\n" +
		"Команди користувача:\n" +
		"/start — почати\n" +
		"/crop — обрізка знизу (через кнопки)\n" +
		"/retry — повтор останнього посилання"
	textCropCurrent    = "Поточна обрізка знизу: %d%%"
	textCropBadValue   = "Помилка значення"
	textCropNotAllowed = "Недопустиме значення"
	textCropUpdated    = "Оновлено"

	textNoLastURL      = "Немає попереднього посилання для повтору."
	textUnsupported    = "Підтримуються лише посилання на оголошення OLX та Otodom."
	textInvalidURL     = "Не вдалося розпізнати посилання."
	textBusy           = "Попереднє посилання ще обробляється, зачекайте."
	textCollecting     = "Збираю зображення, зачекайте…"
	textDone           = "✅ Готово. Надіслано %d зображень."
	textNotFound       = "❌ Не вдалося знайти зображення для цього посилання."
	textSendFailed     = "❌ Не вдалося надіслати зображення. Спробуйте /retry."
	textInternalFailed = "❌ Сталася помилка. Спробуйте пізніше."

	textAdminHelp = "Адмін команди:\n" +
		"<code>/allow id</code> — додати за числовим ID\n" +
		"<code>/allow_username @нік</code> — додати за нікнеймом\n" +
		"/allow_from_forward — перешліть повідомлення користувача\n" +
		"<code>/deny id</code> — видалити з білого списку\n" +
		"/allowed — показати дозволених користувачів\n" +
		"/stats — показати статистику\n" +
		"<code>/setname id Повне Імʼя</code> — вручну змінити імʼя"
	textAllowFormat      = "Формат: /allow id або @нік"
	textAllowUnknownNick = "Немає відповідності для цього ніку. Використайте /allow_from_forward та перешліть повідомлення користувача."
	textBadID            = "Невірний id"
	textAllowed          = "Додано %d до білого списку"
	textDenyFormat       = "Формат: /deny &lt;id&gt;"
	textDenied           = "Видалено %d з білого списку"
	textAllowUsernameFmt = "Формат: /allow_username @нік"
	textNickReserved     = "Нік %s збережено, але користувача ще не додано.\nВикористайте /allow_from_forward і перешліть повідомлення користувача,\nабо попросіть його написати боту /start."
	textAwaitForward     = "Перешліть повідомлення від користувача, щоб додати його"
	textForwardHidden    = "Не вдалося отримати ID з пересланого повідомлення (можливо, налаштування приватності).\nПопросіть користувача написати боту /start — тоді можна буде додати його."
	textSetNameFormat    = "Формат: /setname id Повне Імʼя"
	textNameUpdated      = "Імʼя оновлено"
	textStoreUnavailable = "Сховище недоступне, спробуйте пізніше."
	buttonAllowed        = "👥 Дозволені"
	buttonStats          = "📊 Статистика"
)
