package user

import (
	"bufio"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/registro/core"
	appfs "github.com/trezcool/registro/fs"
)

var (
	pwdMismatchTag  = "eqfield"
	pwdMismatchText = "Los dos campos de contraseña no coinciden."

	// password policy
	pwdMinLen     = 8
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("La contraseña es demasiado corta. Debe contener al menos %d caracteres.", pwdMinLen)

	pwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "La contraseña no puede ser completamente numérica."

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "La contraseña es demasiado similar a los datos del usuario."

	pwdNoCommonTag  = "pwdnocommon"
	pwdNoCommonText = "La contraseña es demasiado común."

	commonPasswords     []string
	commonPasswordsOnce sync.Once
	commonPasswordsPath = path.Join("assets", "common-passwords.txt")
)

// InitValidators registers the user validations & their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(userStructValidation, NewUser{})

	core.RegisterCustomTranslation(validate, translator, pwdMismatchTag, pwdMismatchText, true)
	core.RegisterCustomTranslation(validate, translator, pwdMinLenTag, pwdMinLenText)
	core.RegisterCustomTranslation(validate, translator, pwdNotAllNumTag, pwdNotAllNumText)
	core.RegisterCustomTranslation(validate, translator, pwdAttrSimTag, pwdAttrSimText)
	core.RegisterCustomTranslation(validate, translator, pwdNoCommonTag, pwdNoCommonText)
}

func loadCommonPasswords() {
	file, err := appfs.FS.Open(commonPasswordsPath)
	if err != nil {
		return
	}
	//goland:noinspection GoUnhandledErrorResult
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if pwd := strings.TrimSpace(scanner.Text()); pwd != "" {
			commonPasswords = append(commonPasswords, strings.ToLower(pwd))
		}
	}
	sort.Strings(commonPasswords)
}

func isCommonPassword(pwd string) bool {
	commonPasswordsOnce.Do(loadCommonPasswords)

	lpwd := strings.ToLower(pwd)
	idx := sort.SearchStrings(commonPasswords, lpwd)
	return idx < len(commonPasswords) && commonPasswords[idx] == lpwd
}

// userStructValidation does struct level validation on NewUser.
func userStructValidation(sl validator.StructLevel) {
	if nu, ok := sl.Current().Interface().(NewUser); ok && nu.Password != "" {
		validatePassword(nu.Password, nu.Username, nu.Email, sl)
	}
}

// validatePassword applies the password policy to provided password:
// - minLen: 8
// - not all numeric
// - no user attrs similarity
// - no common password
func validatePassword(pwd, uname, email string, sl validator.StructLevel) {
	reportErr := func(tag string) {
		sl.ReportError(pwd, "password1", "Password", tag, "")
	}

	if len([]rune(pwd)) < pwdMinLen {
		reportErr(pwdMinLenTag)
		return
	}

	allNum := true
	for _, char := range pwd {
		if !unicode.IsDigit(char) {
			allNum = false
			break
		}
	}
	if allNum {
		reportErr(pwdNotAllNumTag)
		return
	}

	getRatio := func(pass, usrAttr string) float64 {
		if usrAttr == "" {
			return 0
		}
		pass, usrAttr = strings.ToLower(pass), strings.ToLower(usrAttr)
		return difflib.NewMatcher(strings.Split(pass, ""), strings.Split(usrAttr, "")).QuickRatio()
	}
	emailLocal := strings.SplitN(email, "@", 2)[0]
	if getRatio(pwd, uname) >= pwdMaxSim ||
		getRatio(pwd, email) >= pwdMaxSim ||
		getRatio(pwd, emailLocal) >= pwdMaxSim {
		reportErr(pwdAttrSimTag)
		return
	}

	if isCommonPassword(pwd) {
		reportErr(pwdNoCommonTag)
	}
}
