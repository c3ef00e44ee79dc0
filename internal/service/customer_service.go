package service

import (
	"errors"

	"go-mini-commerce/internal/apperr"
	"go-mini-commerce/internal/model"
	"go-mini-commerce/internal/repository"
	"go-mini-commerce/pkg/jwt"
	"go-mini-commerce/pkg/validator"

	"github.com/google/uuid"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

type RegisterCustomerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"full_name" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

type UpdateCustomerRequest struct {
	FullName *string `json:"full_name"`
	Password *string `json:"password"`
}

type LoginResponse struct {
	Token    string                 `json:"token"`
	Customer model.CustomerResponse `json:"customer"`
}

type CustomerService interface {
	Register(req *RegisterCustomerRequest) (*model.Customer, error)
	Login(email, password string) (*LoginResponse, error)
	ListCustomers() ([]model.Customer, error)
	GetCustomer(id uuid.UUID) (*model.Customer, error)
	UpdateCustomer(id uuid.UUID, req *UpdateCustomerRequest) (*model.Customer, error)
	DeleteCustomer(id uuid.UUID) error
}

type customerService struct {
	customers repository.CustomerRepository
}

func NewCustomerService(customers repository.CustomerRepository) CustomerService {
	return &customerService{customers: customers}
}

func (s *customerService) Register(req *RegisterCustomerRequest) (*model.Customer, error) {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(errs)
	}

	if existing, _ := s.customers.FindByEmail(req.Email); existing != nil {
		return nil, apperr.New(apperr.KindValidation, "email already registered")
	}

	customer := &model.Customer{
		Email:    req.Email,
		FullName: req.FullName,
	}
	if err := customer.SetPassword(req.Password); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "hash password", err)
	}
	if err := s.customers.Create(customer); err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "create customer", err)
	}
	return customer, nil
}

func (s *customerService) Login(email, password string) (*LoginResponse, error) {
	customer, err := s.customers.FindByEmail(email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !customer.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}

	token, err := jwt.GenerateToken(customer.ID, customer.Email, customer.FullName, customer.IsAdmin)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "sign token", err)
	}

	return &LoginResponse{
		Token:    token,
		Customer: customer.ToResponse(),
	}, nil
}

func (s *customerService) ListCustomers() ([]model.Customer, error) {
	customers, err := s.customers.FindAll()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "list customers", err)
	}
	return customers, nil
}

func (s *customerService) GetCustomer(id uuid.UUID) (*model.Customer, error) {
	customer, err := s.customers.FindByID(id)
	if err != nil {
		return nil, wrapDBErr(err, "customer not found")
	}
	return customer, nil
}

func (s *customerService) UpdateCustomer(id uuid.UUID, req *UpdateCustomerRequest) (*model.Customer, error) {
	customer, err := s.customers.FindByID(id)
	if err != nil {
		return nil, wrapDBErr(err, "customer not found")
	}

	if req.FullName != nil {
		if *req.FullName == "" {
			return nil, apperr.New(apperr.KindValidation, "full_name must not be empty")
		}
		customer.FullName = *req.FullName
	}
	if req.Password != nil {
		if len(*req.Password) < 8 {
			return nil, apperr.New(apperr.KindValidation, "password must be at least 8 characters")
		}
		if err := customer.SetPassword(*req.Password); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "hash password", err)
		}
	}

	if err := s.customers.Update(customer); err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "update customer", err)
	}
	return customer, nil
}

func (s *customerService) DeleteCustomer(id uuid.UUID) error {
	if _, err := s.customers.FindByID(id); err != nil {
		return wrapDBErr(err, "customer not found")
	}
	if err := s.customers.Delete(id); err != nil {
		return apperr.Wrap(apperr.KindPersistence, "delete customer", err)
	}
	return nil
}
