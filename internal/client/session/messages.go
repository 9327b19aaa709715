package session

import (
	"errors"

	"github.com/dmitrijs2005/workoutlog/internal/client/notify"
	"github.com/dmitrijs2005/workoutlog/internal/common"
)

const (
	msgRegistered        = "Conta criada com sucesso!"
	msgAwaitApproval     = "Aguarde a aprovação do administrador para acessar o sistema."
	msgLoginSuccess      = "Login realizado com sucesso!"
	msgLogoutSuccess     = "Logout realizado com sucesso!"
	msgLogoutFailed      = "Erro ao fazer logout"
	msgNotApproved       = "Sua conta ainda não foi aprovada."
	msgRecordNotFound    = "Usuário não encontrado no banco de dados."
	msgErrorTitle        = "Erro"
	msgRegisterFailed    = "Erro ao criar conta. Tente novamente."
	msgDuplicate         = "Este email já está em uso."
	msgWeakSecret        = "Senha muito fraca. Use pelo menos 6 caracteres."
	msgLoginFailed       = "Erro ao fazer login. Verifique suas credenciais."
	msgWrongCredentials  = "Email ou senha incorretos."
	msgServerUnavailable = "Servidor indisponível. Tente novamente mais tarde."
)

func registerFailure(err error) notify.Toast {
	desc := msgRegisterFailed
	switch {
	case errors.Is(err, common.ErrDuplicateIdentifier):
		desc = msgDuplicate
	case errors.Is(err, common.ErrWeakSecret):
		desc = msgWeakSecret
	case errors.Is(err, common.ErrUnavailable):
		desc = msgServerUnavailable
	}
	return notify.Toast{Title: msgErrorTitle, Description: desc, Variant: notify.Destructive}
}

func loginFailure(err error) notify.Toast {
	desc := msgLoginFailed
	switch {
	case errors.Is(err, common.ErrCredentialNotFound), errors.Is(err, common.ErrWrongSecret):
		desc = msgWrongCredentials
	case errors.Is(err, common.ErrUnavailable):
		desc = msgServerUnavailable
	}
	return notify.Toast{Title: msgErrorTitle, Description: desc, Variant: notify.Destructive}
}
